package exams

import (
	"context"
	"fmt"
	"strings"
)

// Service exposes read access to stored tests.
type Service struct {
	Repo Repo
}

// Get returns a test owned by userID.
func (s *Service) Get(ctx context.Context, userID, testID string) (Test, error) {
	if strings.TrimSpace(userID) == "" {
		return Test{}, fmt.Errorf("user id required")
	}
	if strings.TrimSpace(testID) == "" {
		return Test{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, userID, testID)
}

// List returns the user's tests, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Test, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user id required")
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}
