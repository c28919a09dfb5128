package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeClock is a controllable time source for store tests.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(ttl time.Duration, max int) (*WorkspaceStore, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := NewWorkspaceStore(ttl, max)
	s.now = clock.now
	return s, clock
}

func TestWorkspaceStore_CreateAndGet(t *testing.T) {
	s, _ := newTestStore(time.Minute, 0)

	ws, err := s.Create([]UploadedFile{
		{Name: "a.csv", Data: []byte("x\n1\n")},
		{Name: "b.txt", Data: []byte("hello")},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if ws.ID == "" || len(ws.Files) != 2 {
		t.Fatalf("workspace = %+v", ws)
	}
	if ws.Files[0].ID == ws.Files[1].ID {
		t.Error("file ids should be unique")
	}
	if ws.TotalSize() != 9 {
		t.Errorf("TotalSize = %d, want 9", ws.TotalSize())
	}

	got, err := s.Get(ws.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Files[1].Name != "b.txt" {
		t.Errorf("Files[1].Name = %q, want b.txt", got.Files[1].Name)
	}

	f, err := s.File(ws.ID, ws.Files[0].ID)
	if err != nil {
		t.Fatalf("File() error = %v", err)
	}
	if string(f.Data) != "x\n1\n" || f.Size() != 4 {
		t.Errorf("file = %+v", f)
	}
}

func TestWorkspaceStore_NotFound(t *testing.T) {
	s, _ := newTestStore(time.Minute, 0)
	ws, _ := s.Create([]UploadedFile{{Name: "a.csv"}})

	if _, err := s.Get("missing"); !errors.Is(err, ErrWorkspaceNotFound) {
		t.Errorf("Get() error = %v, want ErrWorkspaceNotFound", err)
	}
	if _, err := s.File(ws.ID, "missing"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("File() error = %v, want ErrFileNotFound", err)
	}

	s.Delete(ws.ID)
	if _, err := s.Get(ws.ID); !errors.Is(err, ErrWorkspaceNotFound) {
		t.Errorf("Get() after Delete error = %v", err)
	}
}

func TestWorkspaceStore_Expiry(t *testing.T) {
	s, clock := newTestStore(10*time.Minute, 0)
	ws, _ := s.Create(nil)

	clock.advance(9 * time.Minute)
	if _, err := s.Get(ws.ID); err != nil {
		t.Fatalf("Get() before TTL error = %v", err)
	}

	// Access refreshed the TTL.
	clock.advance(9 * time.Minute)
	if _, err := s.Get(ws.ID); err != nil {
		t.Fatalf("Get() after refresh error = %v", err)
	}

	clock.advance(11 * time.Minute)
	if _, err := s.Get(ws.ID); !errors.Is(err, ErrWorkspaceNotFound) {
		t.Errorf("Get() after TTL error = %v, want ErrWorkspaceNotFound", err)
	}
}

func TestWorkspaceStore_EvictExpired(t *testing.T) {
	s, clock := newTestStore(time.Minute, 0)
	s.Create(nil)
	s.Create(nil)

	clock.advance(30 * time.Second)
	keep, _ := s.Create(nil)

	clock.advance(45 * time.Second)
	if n := s.EvictExpired(); n != 2 {
		t.Errorf("EvictExpired() = %d, want 2", n)
	}
	if ids := s.IDs(); len(ids) != 1 || ids[0] != keep.ID {
		t.Errorf("IDs() = %q, want [%s]", ids, keep.ID)
	}
}

func TestWorkspaceStore_Capacity(t *testing.T) {
	s, clock := newTestStore(time.Minute, 2)
	s.Create(nil)
	s.Create(nil)

	if _, err := s.Create(nil); !errors.Is(err, ErrTooManyWorkspaces) {
		t.Fatalf("Create() error = %v, want ErrTooManyWorkspaces", err)
	}

	// Expired workspaces free their slot.
	clock.advance(2 * time.Minute)
	if _, err := s.Create(nil); err != nil {
		t.Errorf("Create() after expiry error = %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestService_StartWorkspaceSweeper(t *testing.T) {
	svc := NewService(ServiceConfig{WorkspaceTTL: time.Minute})
	clock := &fakeClock{t: time.Now()}
	svc.workspaces.now = clock.now

	svc.workspaces.Create(nil)
	clock.advance(2 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.StartWorkspaceSweeper(ctx, time.Hour)
		close(done)
	}()

	// The first sweep runs immediately on start.
	deadline := time.After(time.Second)
	for svc.workspaces.Len() != 0 {
		select {
		case <-deadline:
			t.Fatal("sweeper did not evict the expired workspace")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
