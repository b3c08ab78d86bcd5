package dispatcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fixflow/fixflow/internal/domain/event"
)

// mockLogger implements Logger for testing
type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

func (m *mockLogger) ErrorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors)
}

func testEvent(t event.Type) *event.Event {
	return event.New(t, "req-1", event.Summary{
		RequestNumber: "REQ-20260829-0001",
		Title:         "Broken radiator",
		NewStatus:     "pending",
	})
}

func TestNewDispatcher(t *testing.T) {
	if d := NewDispatcher(); d == nil {
		t.Fatal("expected non-nil dispatcher")
	}
	if d := NewDispatcher(WithLogger(&mockLogger{})); d == nil {
		t.Fatal("expected non-nil dispatcher")
	}
}

func TestSubscribe_Concurrent(t *testing.T) {
	d := NewDispatcher()

	const n = 16
	var wg sync.WaitGroup
	var delivered atomic.Int32
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Subscribe(event.TypeCreated, func(ctx context.Context, evt *event.Event) error {
				delivered.Add(1)
				return nil
			})
		}()
	}
	wg.Wait()

	if err := d.Dispatch(context.Background(), testEvent(event.TypeCreated)); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if got := delivered.Load(); got != n {
		t.Errorf("delivered to %d handlers, want %d", got, n)
	}
}

func TestDispatch(t *testing.T) {
	t.Run("delivers to all handlers in order", func(t *testing.T) {
		d := NewDispatcher()
		var order []string
		d.SubscribeNamed(event.TypeCreated, "first", func(ctx context.Context, evt *event.Event) error {
			order = append(order, "first")
			return nil
		})
		d.SubscribeNamed(event.TypeCreated, "second", func(ctx context.Context, evt *event.Event) error {
			order = append(order, "second")
			return nil
		})

		if err := d.Dispatch(context.Background(), testEvent(event.TypeCreated)); err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}
		if len(order) != 2 || order[0] != "first" || order[1] != "second" {
			t.Errorf("handler order = %v, want [first second]", order)
		}
	})

	t.Run("only matching event type is delivered", func(t *testing.T) {
		d := NewDispatcher()
		called := false
		d.Subscribe(event.TypeCompleted, func(ctx context.Context, evt *event.Event) error {
			called = true
			return nil
		})

		if err := d.Dispatch(context.Background(), testEvent(event.TypeCreated)); err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}
		if called {
			t.Error("handler for different event type was called")
		}
	})

	t.Run("returns first handler error", func(t *testing.T) {
		d := NewDispatcher(WithLogger(&mockLogger{}))
		wantErr := errors.New("delivery failed")
		d.SubscribeNamed(event.TypeCreated, "failing", func(ctx context.Context, evt *event.Event) error {
			return wantErr
		})

		err := d.Dispatch(context.Background(), testEvent(event.TypeCreated))
		if !errors.Is(err, wantErr) {
			t.Errorf("Dispatch() error = %v, want wrapped %v", err, wantErr)
		}
	})
}

func TestDispatchAsync(t *testing.T) {
	t.Run("failing handler does not affect others", func(t *testing.T) {
		logger := &mockLogger{}
		d := NewDispatcher(WithLogger(logger))

		var delivered atomic.Int32
		d.SubscribeNamed(event.TypeCreated, "failing", func(ctx context.Context, evt *event.Event) error {
			return errors.New("channel down")
		})
		d.SubscribeNamed(event.TypeCreated, "healthy", func(ctx context.Context, evt *event.Event) error {
			delivered.Add(1)
			return nil
		})

		d.DispatchAsync(context.Background(), testEvent(event.TypeCreated))
		if err := d.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}

		if delivered.Load() != 1 {
			t.Errorf("healthy handler deliveries = %d, want 1", delivered.Load())
		}
		if logger.ErrorCount() == 0 {
			t.Error("failing handler error was not logged")
		}
	})

	t.Run("panicking handler is contained", func(t *testing.T) {
		logger := &mockLogger{}
		d := NewDispatcher(WithLogger(logger))

		var delivered atomic.Int32
		d.SubscribeNamed(event.TypeCreated, "panicking", func(ctx context.Context, evt *event.Event) error {
			panic("boom")
		})
		d.SubscribeNamed(event.TypeCreated, "healthy", func(ctx context.Context, evt *event.Event) error {
			delivered.Add(1)
			return nil
		})

		d.DispatchAsync(context.Background(), testEvent(event.TypeCreated))
		d.Close()

		if delivered.Load() != 1 {
			t.Errorf("healthy handler deliveries = %d, want 1", delivered.Load())
		}
		if logger.ErrorCount() == 0 {
			t.Error("panic was not logged")
		}
	})

	t.Run("events dropped after close", func(t *testing.T) {
		d := NewDispatcher()
		var delivered atomic.Int32
		d.Subscribe(event.TypeCreated, func(ctx context.Context, evt *event.Event) error {
			delivered.Add(1)
			return nil
		})

		d.Close()
		d.DispatchAsync(context.Background(), testEvent(event.TypeCreated))

		time.Sleep(10 * time.Millisecond)
		if delivered.Load() != 0 {
			t.Errorf("deliveries after close = %d, want 0", delivered.Load())
		}
	})
}

func TestClose(t *testing.T) {
	t.Run("waits for in-flight handlers", func(t *testing.T) {
		d := NewDispatcher()
		var finished atomic.Bool
		d.Subscribe(event.TypeCreated, func(ctx context.Context, evt *event.Event) error {
			time.Sleep(20 * time.Millisecond)
			finished.Store(true)
			return nil
		})

		d.DispatchAsync(context.Background(), testEvent(event.TypeCreated))
		if err := d.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}

		if !finished.Load() {
			t.Error("Close() returned before in-flight handler finished")
		}
	})

	t.Run("second close errors", func(t *testing.T) {
		d := NewDispatcher()
		if err := d.Close(); err != nil {
			t.Fatalf("first Close() error = %v", err)
		}
		if err := d.Close(); err == nil {
			t.Error("second Close() should error")
		}
	})
}
