package job

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// statusChange is one UpdateStatus call observed by the mock store.
type statusChange struct {
	ID        uuid.UUID
	Status    Status
	Attempts  int
	LastError string
}

// mockStore is an in-memory Store that records every status transition.
type mockStore struct {
	mu      sync.Mutex
	jobs    map[uuid.UUID]*Job
	changes []statusChange

	SaveFn func(ctx context.Context, job *Job) error
}

func newMockStore(seed ...*Job) *mockStore {
	s := &mockStore{jobs: make(map[uuid.UUID]*Job)}
	for _, j := range seed {
		cp := *j
		s.jobs[j.ID] = &cp
	}
	return s
}

func (s *mockStore) Save(ctx context.Context, job *Job) error {
	if s.SaveFn != nil {
		if err := s.SaveFn(ctx, job); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *mockStore) UpdateStatus(_ context.Context, id uuid.UUID, status Status, attempts int, lastError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changes = append(s.changes, statusChange{ID: id, Status: status, Attempts: attempts, LastError: lastError})
	if j, ok := s.jobs[id]; ok {
		j.Status = status
		j.Attempts = attempts
		j.LastError = lastError
		j.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (s *mockStore) ListPending(context.Context) ([]*Job, error) {
	return s.byStatus(StatusPending, 0), nil
}

func (s *mockStore) ListProcessing(_ context.Context, olderThan time.Duration) ([]*Job, error) {
	return s.byStatus(StatusProcessing, olderThan), nil
}

func (s *mockStore) byStatus(status Status, olderThan time.Duration) []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().UTC().Add(-olderThan)
	var out []*Job
	for _, j := range s.jobs {
		if j.Status != status {
			continue
		}
		if olderThan > 0 && !j.UpdatedAt.Before(cutoff) {
			continue
		}
		cp := *j
		out = append(out, &cp)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.Before(out[b].CreatedAt) })
	return out
}

func (s *mockStore) get(id uuid.UUID) Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.jobs[id]
}

func (s *mockStore) statuses(id uuid.UUID) []Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Status
	for _, c := range s.changes {
		if c.ID == id {
			out = append(out, c.Status)
		}
	}
	return out
}
