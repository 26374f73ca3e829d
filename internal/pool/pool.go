// Package pool provides a bounded pool of reusable connections with
// health checking on acquire. A weighted semaphore caps concurrent
// checkouts; callers that cannot get a slot within the configured wait
// receive domain.ErrPoolExhausted.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/bblanco3/erp-backend/internal/domain"
)

// Conn is the minimal contract a pooled connection must satisfy.
type Conn interface {
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Factory dials a new connection.
type Factory[C Conn] func(ctx context.Context) (C, error)

// Config holds pool sizing knobs.
type Config struct {
	MinConns       int           // pre-warmed at construction
	MaxConns       int           // hard cap on live connections
	AcquireTimeout time.Duration // max wait for a slot; 0 means wait on ctx only
}

// Pool is a bounded connection pool. The zero value is not usable;
// construct with New.
type Pool[C interface {
	comparable
	Conn
}] struct {
	factory Factory[C]
	cfg     Config
	sem     *semaphore.Weighted

	mu     sync.Mutex
	idle   []C
	inUse  map[C]struct{}
	closed bool
}

// New creates a pool and pre-warms MinConns connections. Construction
// fails if any warm-up dial fails; already-dialed connections are closed.
func New[C interface {
	comparable
	Conn
}](ctx context.Context, cfg Config, factory Factory[C]) (*Pool[C], error) {
	if cfg.MaxConns < 1 {
		cfg.MaxConns = 1
	}
	if cfg.MinConns < 0 {
		cfg.MinConns = 0
	}
	if cfg.MinConns > cfg.MaxConns {
		cfg.MinConns = cfg.MaxConns
	}

	p := &Pool[C]{
		factory: factory,
		cfg:     cfg,
		sem:     semaphore.NewWeighted(int64(cfg.MaxConns)),
		inUse:   make(map[C]struct{}),
	}

	for range cfg.MinConns {
		c, err := factory(ctx)
		if err != nil {
			_ = p.Close(ctx)
			return nil, fmt.Errorf("pool warm-up: %w", err)
		}
		p.idle = append(p.idle, c)
	}
	return p, nil
}

// Acquire returns a healthy connection, waiting for a free slot if the
// pool is at capacity. Idle connections are pinged first; dead ones are
// discarded and replaced transparently. Returns domain.ErrPoolExhausted
// when no slot frees up within AcquireTimeout.
func (p *Pool[C]) Acquire(ctx context.Context) (C, error) {
	var zero C

	waitCtx := ctx
	var cancel context.CancelFunc
	if p.cfg.AcquireTimeout > 0 {
		waitCtx, cancel = context.WithTimeout(ctx, p.cfg.AcquireTimeout)
		defer cancel()
	}

	if err := p.sem.Acquire(waitCtx, 1); err != nil {
		if errors.Is(waitCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return zero, fmt.Errorf("no connection available within %s: %w",
				p.cfg.AcquireTimeout, domain.ErrPoolExhausted)
		}
		return zero, fmt.Errorf("acquire connection: %w", err)
	}

	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			p.sem.Release(1)
			return zero, errors.New("pool is closed")
		}

		var c C
		var fromIdle bool
		if n := len(p.idle); n > 0 {
			c = p.idle[n-1]
			p.idle = p.idle[:n-1]
			fromIdle = true
		}
		p.mu.Unlock()

		if !fromIdle {
			created, err := p.factory(ctx)
			if err != nil {
				p.sem.Release(1)
				return zero, fmt.Errorf("dial connection: %w", err)
			}
			c = created
		}

		if err := c.Ping(ctx); err != nil {
			// Dead connection: discard and try again with a fresh one.
			_ = c.Close(ctx)
			if fromIdle {
				continue
			}
			p.sem.Release(1)
			return zero, fmt.Errorf("ping new connection: %w", err)
		}

		p.mu.Lock()
		p.inUse[c] = struct{}{}
		p.mu.Unlock()
		return c, nil
	}
}

// Release returns a connection to the pool. Connections the pool does
// not know about are ignored.
func (p *Pool[C]) Release(c C) {
	p.mu.Lock()
	if _, ok := p.inUse[c]; !ok {
		p.mu.Unlock()
		return
	}
	delete(p.inUse, c)
	if p.closed {
		p.mu.Unlock()
		_ = c.Close(context.Background())
	} else {
		p.idle = append(p.idle, c)
		p.mu.Unlock()
	}
	p.sem.Release(1)
}

// Close shuts the pool down. Idle connections are closed immediately;
// in-use connections are closed as they are released.
func (p *Pool[C]) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	var firstErr error
	for _, c := range idle {
		if err := c.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Stats reports the current idle and checked-out connection counts.
func (p *Pool[C]) Stats() (idle, inUse int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle), len(p.inUse)
}
