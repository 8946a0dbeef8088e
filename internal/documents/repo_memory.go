package documents

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Document // documentID -> document
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string]Document),
	}
}

// Create stores a new document.
func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[doc.ID] = cloneDocument(doc)
	return nil
}

// GetByID returns a document owned by userID.
func (r *MemoryRepo) GetByID(ctx context.Context, userID, documentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.data[documentID]
	if !ok {
		return Document{}, ErrNotFound
	}
	if doc.UserID != userID {
		return Document{}, ErrForbidden
	}
	return cloneDocument(doc), nil
}

// ListByUser returns documents for a user, newest first, honoring limit/offset.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	var docs []Document
	for _, doc := range r.data {
		if doc.UserID == userID {
			docs = append(docs, cloneDocument(doc))
		}
	}
	r.mu.RUnlock()

	if offset >= len(docs) {
		return []Document{}, nil
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})

	end := len(docs)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return docs[offset:end], nil
}

// UpdateExtractedText overwrites the cached extraction for a document.
func (r *MemoryRepo) UpdateExtractedText(ctx context.Context, userID, documentID, text string, extractedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[documentID]
	if !ok {
		return ErrNotFound
	}
	if doc.UserID != userID {
		return ErrForbidden
	}
	doc.ExtractedText = &text
	doc.ExtractedAt = &extractedAt
	r.data[documentID] = doc
	return nil
}

func cloneDocument(doc Document) Document {
	if doc.ExtractedText != nil {
		text := *doc.ExtractedText
		doc.ExtractedText = &text
	}
	if doc.ExtractedAt != nil {
		at := *doc.ExtractedAt
		doc.ExtractedAt = &at
	}
	return doc
}

var _ Repo = (*MemoryRepo)(nil)
