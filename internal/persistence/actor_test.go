package persistence

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/buildtall-systems/kitchen/internal/db"
	"github.com/buildtall-systems/kitchen/internal/order"
	"github.com/buildtall-systems/kitchen/internal/protocol"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	if err := database.Migrate(context.Background()); err != nil {
		_ = database.Close()
		t.Fatalf("migrating test db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

// startActor runs an actor until the test ends and returns a channel that
// yields Run's result.
func startActor(t *testing.T, store Store) (*Actor, <-chan error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	a := NewActor(store, 8, discardLogger())
	done := make(chan error, 1)
	stopped := make(chan struct{})
	go func() {
		done <- a.Run(ctx)
		close(stopped)
	}()

	t.Cleanup(func() {
		cancel()
		select {
		case <-stopped:
		case <-time.After(5 * time.Second):
			t.Error("actor did not stop")
		}
	})
	return a, done
}

func TestActor_SeedDecrementQuery(t *testing.T) {
	ctx := context.Background()
	a, _ := startActor(t, setupTestDB(t))
	c := NewClient(a.Mailbox(), protocol.RoleCoordinator, Strict)

	if err := c.Seed(ctx, map[string]int{"pizza": 10}); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	applied, err := c.DecrementInventory(ctx, "pizza", 4)
	if err != nil {
		t.Fatalf("DecrementInventory: %v", err)
	}
	if !applied {
		t.Error("decrement not applied")
	}

	stock, err := c.ListInventory(ctx)
	if err != nil {
		t.Fatalf("ListInventory: %v", err)
	}
	if diff := cmp.Diff(map[string]int{"pizza": 6}, stock); diff != "" {
		t.Errorf("inventory (-want +got):\n%s", diff)
	}
}

func TestActor_DecrementRefusedIsNotAnError(t *testing.T) {
	ctx := context.Background()
	a, _ := startActor(t, setupTestDB(t))
	c := NewClient(a.Mailbox(), protocol.RoleWorker, Strict)

	_ = c.Seed(ctx, map[string]int{"pizza": 2})

	applied, err := c.DecrementInventory(ctx, "pizza", 3)
	if err != nil {
		t.Fatalf("DecrementInventory: %v", err)
	}
	if applied {
		t.Error("decrement beyond stock reported applied")
	}

	// The actor is still serving.
	stock, err := c.ListInventory(ctx)
	if err != nil {
		t.Fatalf("ListInventory: %v", err)
	}
	if stock["pizza"] != 2 {
		t.Errorf("pizza = %d, want 2", stock["pizza"])
	}
}

func TestActor_DuplicateOrder(t *testing.T) {
	ctx := context.Background()
	a, done := startActor(t, setupTestDB(t))
	c := NewClient(a.Mailbox(), protocol.RoleWorker, Strict)

	first := order.Record{ID: 1, Items: order.Items{{Item: "pizza", Quantity: 5}}, Status: order.StatusCompleted}
	if err := c.RegisterOrder(ctx, first); err != nil {
		t.Fatalf("RegisterOrder: %v", err)
	}
	err := c.RegisterOrder(ctx, order.Record{ID: 1, Items: order.Items{{Item: "soda", Quantity: 1}}, Status: order.StatusPartial})
	if !errors.Is(err, ErrDuplicateOrder) {
		t.Fatalf("second RegisterOrder = %v, want ErrDuplicateOrder", err)
	}

	records, err := c.ListOrders(ctx)
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if diff := cmp.Diff([]order.Record{first}, records); diff != "" {
		t.Errorf("records (-want +got):\n%s", diff)
	}

	select {
	case err := <-done:
		t.Fatalf("actor stopped after duplicate: %v", err)
	default:
	}
}

func TestActor_ProtocolViolationKeepsActorAlive(t *testing.T) {
	ctx := context.Background()
	a, _ := startActor(t, setupTestDB(t))

	for _, req := range []protocol.Request{protocol.SubmitOrder{}, protocol.EndOfOrders{}, nil} {
		_, err := protocol.Call(ctx, a.Mailbox(), protocol.RoleCoordinator, req)
		if !errors.Is(err, protocol.ErrProtocolViolation) {
			t.Errorf("Call(%T) = %v, want ErrProtocolViolation", req, err)
		}
	}

	c := NewClient(a.Mailbox(), protocol.RoleCoordinator, Strict)
	if _, err := c.ListOrders(ctx); err != nil {
		t.Errorf("actor stopped serving after violations: %v", err)
	}
}

func TestActor_RepliesReachOriginalSender(t *testing.T) {
	ctx := context.Background()
	a, _ := startActor(t, setupTestDB(t))
	_ = NewClient(a.Mailbox(), protocol.RoleCoordinator, Strict).Seed(ctx, map[string]int{"soda": 20})

	workerReplies := make(chan protocol.Reply, 1)
	coordReplies := make(chan protocol.Reply, 1)
	wMsg := protocol.NewMessage(protocol.RoleWorker, protocol.QueryInventory{}, workerReplies)
	cMsg := protocol.NewMessage(protocol.RoleCoordinator, protocol.QueryOrders{}, coordReplies)

	if err := a.Mailbox().Send(ctx, wMsg); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := a.Mailbox().Send(ctx, cMsg); err != nil {
		t.Fatalf("Send: %v", err)
	}

	wr := <-workerReplies
	if wr.InReplyTo != wMsg.ID || wr.To != protocol.RoleWorker || wr.Inventory["soda"] != 20 {
		t.Errorf("worker got %+v", wr)
	}
	cr := <-coordReplies
	if cr.InReplyTo != cMsg.ID || cr.To != protocol.RoleCoordinator {
		t.Errorf("coordinator got %+v", cr)
	}
}

func TestActor_RelaxedWritesAreOrderedBeforeQueries(t *testing.T) {
	ctx := context.Background()
	a, _ := startActor(t, setupTestDB(t))
	strict := NewClient(a.Mailbox(), protocol.RoleCoordinator, Strict)
	relaxed := NewClient(a.Mailbox(), protocol.RoleWorker, Relaxed)

	_ = strict.Seed(ctx, map[string]int{"pizza": 10, "soda": 20})

	for _, d := range []order.Line{{Item: "pizza", Quantity: 3}, {Item: "soda", Quantity: 5}, {Item: "pizza", Quantity: 2}} {
		queued, err := relaxed.DecrementInventory(ctx, d.Item, d.Quantity)
		if err != nil || !queued {
			t.Fatalf("relaxed DecrementInventory = %v, %v", queued, err)
		}
	}
	rec := order.Record{ID: 9, Items: order.Items{{Item: "pizza", Quantity: 5}}, Status: order.StatusCompleted}
	if err := relaxed.RegisterOrder(ctx, rec); err != nil {
		t.Fatalf("relaxed RegisterOrder: %v", err)
	}
	// A relaxed duplicate is not reported to the sender.
	if err := relaxed.RegisterOrder(ctx, rec); err != nil {
		t.Fatalf("relaxed duplicate RegisterOrder: %v", err)
	}

	stock, err := strict.ListInventory(ctx)
	if err != nil {
		t.Fatalf("ListInventory: %v", err)
	}
	if diff := cmp.Diff(map[string]int{"pizza": 5, "soda": 15}, stock); diff != "" {
		t.Errorf("inventory (-want +got):\n%s", diff)
	}
	records, err := strict.ListOrders(ctx)
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if diff := cmp.Diff([]order.Record{rec}, records); diff != "" {
		t.Errorf("records (-want +got):\n%s", diff)
	}
}

// brokenStore fails every call.
type brokenStore struct{ err error }

func (s brokenStore) RegisterOrder(context.Context, order.Record) error { return s.err }
func (s brokenStore) DecrementInventory(context.Context, string, int) (bool, error) {
	return false, s.err
}
func (s brokenStore) ListOrders(context.Context) ([]order.Record, error)   { return nil, s.err }
func (s brokenStore) ListInventory(context.Context) (map[string]int, error) { return nil, s.err }
func (s brokenStore) Reset(context.Context) error                           { return s.err }
func (s brokenStore) Seed(context.Context, map[string]int) error            { return s.err }

func TestActor_StoreFailureStopsActor(t *testing.T) {
	ctx := context.Background()
	diskErr := errors.New("disk I/O error")
	a, done := startActor(t, brokenStore{err: diskErr})
	c := NewClient(a.Mailbox(), protocol.RoleWorker, Strict)

	_, err := c.DecrementInventory(ctx, "pizza", 1)
	if !errors.Is(err, ErrStoreUnavailable) || !errors.Is(err, diskErr) {
		t.Fatalf("DecrementInventory = %v, want ErrStoreUnavailable wrapping disk error", err)
	}

	select {
	case runErr := <-done:
		if !errors.Is(runErr, ErrStoreUnavailable) {
			t.Errorf("Run = %v, want ErrStoreUnavailable", runErr)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("actor kept running after store failure")
	}

	// Later requests fail fast instead of hanging or being dropped silently.
	if _, err := c.ListOrders(ctx); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("ListOrders after stop = %v, want ErrStoreUnavailable", err)
	}
	relaxed := NewClient(a.Mailbox(), protocol.RoleWorker, Relaxed)
	if err := relaxed.RegisterOrder(ctx, order.Record{ID: 1}); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("relaxed RegisterOrder after stop = %v, want ErrStoreUnavailable", err)
	}
}

func TestActor_StopOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a := NewActor(setupTestDB(t), 1, discardLogger())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v, want nil on cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("actor did not stop on cancel")
	}

	c := NewClient(a.Mailbox(), protocol.RoleCoordinator, Strict)
	if _, err := c.ListInventory(context.Background()); !errors.Is(err, protocol.ErrMailboxClosed) {
		t.Errorf("ListInventory after stop = %v, want ErrMailboxClosed", err)
	}
}

func TestParseConsistency(t *testing.T) {
	tests := []struct {
		in      string
		want    Consistency
		wantErr bool
	}{
		{"strict", Strict, false},
		{"relaxed", Relaxed, false},
		{"eventual", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseConsistency(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseConsistency(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseConsistency(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
