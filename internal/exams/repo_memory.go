package exams

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Test // testID -> test
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Test)}
}

// Create stores a validated test.
func (r *MemoryRepo) Create(ctx context.Context, test Test) (Test, error) {
	if err := ctx.Err(); err != nil {
		return Test{}, err
	}
	if err := test.Validate(); err != nil {
		return Test{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.data[test.ID]; exists {
		return Test{}, fmt.Errorf("%w: duplicate id %s", ErrInvalidTest, test.ID)
	}
	r.data[test.ID] = cloneTest(test)
	return cloneTest(test), nil
}

// GetByID returns a test owned by userID.
func (r *MemoryRepo) GetByID(ctx context.Context, userID, testID string) (Test, error) {
	if err := ctx.Err(); err != nil {
		return Test{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	test, ok := r.data[testID]
	if !ok {
		return Test{}, ErrNotFound
	}
	if test.UserID != userID {
		return Test{}, ErrForbidden
	}
	return cloneTest(test), nil
}

// ListByUser returns the user's tests, newest first.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Test, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}

	r.mu.RLock()
	var tests []Test
	for _, test := range r.data {
		if test.UserID == userID {
			tests = append(tests, cloneTest(test))
		}
	}
	r.mu.RUnlock()

	if offset >= len(tests) {
		return []Test{}, nil
	}
	sort.Slice(tests, func(i, j int) bool {
		return tests[i].CreatedAt.After(tests[j].CreatedAt)
	})
	end := len(tests)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return tests[offset:end], nil
}

var _ Repo = (*MemoryRepo)(nil)
