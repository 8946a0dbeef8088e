package documents

import (
	"context"
	"time"
)

// Repo defines persistence operations for documents.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	// GetByID returns ErrNotFound for unknown ids and ErrForbidden when the
	// document exists but is owned by someone else.
	GetByID(ctx context.Context, userID, documentID string) (Document, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error)
	UpdateExtractedText(ctx context.Context, userID, documentID, text string, extractedAt time.Time) error
}
