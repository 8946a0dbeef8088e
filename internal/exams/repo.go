package exams

import "context"

// Repo defines persistence operations for tests.
type Repo interface {
	// Create stores the test and its ordered sources atomically.
	Create(ctx context.Context, test Test) (Test, error)
	GetByID(ctx context.Context, userID, testID string) (Test, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Test, error)
}
