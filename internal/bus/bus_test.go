package bus

import (
	"context"
	"errors"
	"testing"

	"github.com/bblanco3/erp-backend/internal/domain"
)

type testCmd struct{ name string }

func (c testCmd) CommandName() string { return c.name }

type testQuery struct{ name string }

func (q testQuery) QueryName() string { return q.name }

func TestDispatchRoutesToHandler(t *testing.T) {
	b := New()
	b.RegisterCommand("project.create", func(_ context.Context, cmd Command) (any, error) {
		return "handled:" + cmd.CommandName(), nil
	})

	res, err := b.Dispatch(context.Background(), testCmd{name: "project.create"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != "handled:project.create" {
		t.Fatalf("unexpected result: %v", res)
	}
}

func TestDispatchNoHandler(t *testing.T) {
	b := New()
	_, err := b.Dispatch(context.Background(), testCmd{name: "project.create"})
	if !errors.Is(err, domain.ErrNoHandler) {
		t.Fatalf("expected ErrNoHandler, got %v", err)
	}
}

func TestDispatchPropagatesHandlerError(t *testing.T) {
	sentinel := errors.New("boom")
	b := New()
	b.RegisterCommand("project.create", func(context.Context, Command) (any, error) {
		return nil, sentinel
	})

	_, err := b.Dispatch(context.Background(), testCmd{name: "project.create"})
	if !errors.Is(err, sentinel) {
		t.Fatalf("handler error not propagated: %v", err)
	}
}

func TestAskRoutesToHandler(t *testing.T) {
	b := New()
	b.RegisterQuery("project.list", func(context.Context, Query) (any, error) {
		return []string{"p1"}, nil
	})

	res, err := b.Ask(context.Background(), testQuery{name: "project.list"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if list, ok := res.([]string); !ok || len(list) != 1 {
		t.Fatalf("unexpected result: %v", res)
	}
}

func TestAskNoHandler(t *testing.T) {
	b := New()
	_, err := b.Ask(context.Background(), testQuery{name: "project.list"})
	if !errors.Is(err, domain.ErrNoHandler) {
		t.Fatalf("expected ErrNoHandler, got %v", err)
	}
}

func TestDuplicateCommandRegistrationPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()

	b := New()
	fn := func(context.Context, Command) (any, error) { return nil, nil }
	b.RegisterCommand("project.create", fn)
	b.RegisterCommand("project.create", fn)
}

func TestAssertReportsMissing(t *testing.T) {
	b := New()
	b.RegisterCommand("project.create", func(context.Context, Command) (any, error) { return nil, nil })

	err := b.Assert([]string{"project.create", "project.delete"}, []string{"project.list"})
	if !errors.Is(err, domain.ErrNoHandler) {
		t.Fatalf("expected ErrNoHandler, got %v", err)
	}

	b.RegisterCommand("project.delete", func(context.Context, Command) (any, error) { return nil, nil })
	b.RegisterQuery("project.list", func(context.Context, Query) (any, error) { return nil, nil })
	if err := b.Assert([]string{"project.create", "project.delete"}, []string{"project.list"}); err != nil {
		t.Fatalf("unexpected error after full registration: %v", err)
	}
}
