package core

// workspace.go keeps uploaded files in memory between requests.
//
// A workspace is created per upload and holds the original bytes of every
// file so that changing an option re-runs the pipeline from scratch.
// Workspaces expire TTL after their last access.

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// UploadedFile is a file received from a client.
type UploadedFile struct {
	Name string
	Data []byte
}

// StoredFile is an uploaded file held by a workspace.
type StoredFile struct {
	ID         string
	Name       string
	Data       []byte
	UploadedAt time.Time
}

// Size returns the file size in bytes.
func (f StoredFile) Size() int {
	return len(f.Data)
}

// Workspace is a snapshot of a stored upload.
type Workspace struct {
	ID         string
	Files      []StoredFile
	CreatedAt  time.Time
	LastAccess time.Time
}

// TotalSize returns the combined size of all files.
func (w Workspace) TotalSize() int {
	n := 0
	for _, f := range w.Files {
		n += f.Size()
	}
	return n
}

// WorkspaceStore is an in-memory, TTL-bounded set of workspaces.
// It is safe for concurrent use.
type WorkspaceStore struct {
	ttl time.Duration
	max int
	now func() time.Time

	mu    sync.Mutex
	items map[string]*Workspace
}

// NewWorkspaceStore creates a store. A max of 0 means unlimited.
func NewWorkspaceStore(ttl time.Duration, max int) *WorkspaceStore {
	return &WorkspaceStore{
		ttl:   ttl,
		max:   max,
		now:   time.Now,
		items: make(map[string]*Workspace),
	}
}

// Create stores files in a new workspace.
// Expired workspaces are evicted first; ErrTooManyWorkspaces is returned if
// the store is still full.
func (s *WorkspaceStore) Create(files []UploadedFile) (Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.evictLocked(now)
	if s.max > 0 && len(s.items) >= s.max {
		return Workspace{}, ErrTooManyWorkspaces
	}

	ws := &Workspace{
		ID:         uuid.NewString(),
		Files:      make([]StoredFile, len(files)),
		CreatedAt:  now,
		LastAccess: now,
	}
	for i, f := range files {
		ws.Files[i] = StoredFile{
			ID:         uuid.NewString(),
			Name:       f.Name,
			Data:       f.Data,
			UploadedAt: now,
		}
	}

	s.items[ws.ID] = ws
	return *ws, nil
}

// Get returns a workspace and refreshes its expiry.
func (s *WorkspaceStore) Get(id string) (Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, err := s.liveLocked(id)
	if err != nil {
		return Workspace{}, err
	}
	return *ws, nil
}

// File returns one file of a workspace and refreshes the workspace expiry.
func (s *WorkspaceStore) File(workspaceID, fileID string) (StoredFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, err := s.liveLocked(workspaceID)
	if err != nil {
		return StoredFile{}, err
	}
	for _, f := range ws.Files {
		if f.ID == fileID {
			return f, nil
		}
	}
	return StoredFile{}, ErrFileNotFound
}

// Delete removes a workspace. Deleting an unknown id is a no-op.
func (s *WorkspaceStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
}

// EvictExpired removes every workspace idle for longer than the TTL and
// returns how many were removed.
func (s *WorkspaceStore) EvictExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evictLocked(s.now())
}

// Len returns the number of stored workspaces, expired or not.
func (s *WorkspaceStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// IDs returns the stored workspace ids sorted by creation time.
func (s *WorkspaceStore) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws := make([]*Workspace, 0, len(s.items))
	for _, w := range s.items {
		ws = append(ws, w)
	}
	sort.Slice(ws, func(i, j int) bool { return ws[i].CreatedAt.Before(ws[j].CreatedAt) })

	ids := make([]string, len(ws))
	for i, w := range ws {
		ids[i] = w.ID
	}
	return ids
}

func (s *WorkspaceStore) liveLocked(id string) (*Workspace, error) {
	ws, ok := s.items[id]
	if !ok {
		return nil, ErrWorkspaceNotFound
	}
	now := s.now()
	if s.expired(ws, now) {
		delete(s.items, id)
		return nil, ErrWorkspaceNotFound
	}
	ws.LastAccess = now
	return ws, nil
}

func (s *WorkspaceStore) evictLocked(now time.Time) int {
	n := 0
	for id, ws := range s.items {
		if s.expired(ws, now) {
			delete(s.items, id)
			n++
		}
	}
	return n
}

func (s *WorkspaceStore) expired(ws *Workspace, now time.Time) bool {
	return s.ttl > 0 && now.Sub(ws.LastAccess) > s.ttl
}
