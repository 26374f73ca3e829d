// Package bus provides synchronous in-process command and query dispatch.
// Exactly one handler serves each message name; dispatch is a lookup and
// a direct call, with no queuing or retries.
package bus

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bblanco3/erp-backend/internal/domain"
)

// Command is a request to mutate state. Implementations are immutable
// value types carrying everything the handler needs.
type Command interface {
	CommandName() string
}

// Query is a request to read state.
type Query interface {
	QueryName() string
}

// CommandFunc handles a single command name. The returned value is the
// handler's result (for example the created entity) and is passed back
// to the dispatcher's caller unchanged.
type CommandFunc func(ctx context.Context, cmd Command) (any, error)

// QueryFunc handles a single query name.
type QueryFunc func(ctx context.Context, q Query) (any, error)

// Bus routes commands and queries to their registered handlers.
type Bus struct {
	mu       sync.RWMutex
	commands map[string]CommandFunc
	queries  map[string]QueryFunc
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{
		commands: make(map[string]CommandFunc),
		queries:  make(map[string]QueryFunc),
	}
}

// RegisterCommand binds a handler to a command name. Registration happens
// at startup; a duplicate name is a programming error and panics.
func (b *Bus) RegisterCommand(name string, fn CommandFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.commands[name]; exists {
		panic(fmt.Sprintf("bus: duplicate command handler for %q", name))
	}
	b.commands[name] = fn
}

// RegisterQuery binds a handler to a query name. Panics on duplicates.
func (b *Bus) RegisterQuery(name string, fn QueryFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.queries[name]; exists {
		panic(fmt.Sprintf("bus: duplicate query handler for %q", name))
	}
	b.queries[name] = fn
}

// Dispatch routes cmd to its handler and returns the handler's result.
// Handler errors propagate to the caller unchanged.
func (b *Bus) Dispatch(ctx context.Context, cmd Command) (any, error) {
	b.mu.RLock()
	fn, ok := b.commands[cmd.CommandName()]
	b.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("command %q: %w", cmd.CommandName(), domain.ErrNoHandler)
	}
	return fn(ctx, cmd)
}

// Ask routes q to its handler and returns the handler's result.
func (b *Bus) Ask(ctx context.Context, q Query) (any, error) {
	b.mu.RLock()
	fn, ok := b.queries[q.QueryName()]
	b.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("query %q: %w", q.QueryName(), domain.ErrNoHandler)
	}
	return fn(ctx, q)
}

// Assert verifies at startup that every listed command and query name has
// a handler, so missing registrations surface before traffic is served.
func (b *Bus) Assert(commands, queries []string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var missing []string
	for _, name := range commands {
		if _, ok := b.commands[name]; !ok {
			missing = append(missing, "command "+name)
		}
	}
	for _, name := range queries {
		if _, ok := b.queries[name]; !ok {
			missing = append(missing, "query "+name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("bus: unbound handlers: %v: %w", missing, domain.ErrNoHandler)
	}
	return nil
}
