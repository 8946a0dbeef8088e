package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"quizgen-backend/internal/shared/storage/object"
	"quizgen-backend/internal/shared/telemetry"
)

const (
	mimePDF = "application/pdf"

	// DefaultMaxBytes caps uploads and fetches when MaxBytes is unset.
	DefaultMaxBytes int64 = 20 << 20
)

// Service contains business logic for documents.
type Service struct {
	Store    object.ObjectStore
	Repo     Repo
	MaxBytes int64
	Now      func() time.Time
}

// Upload validates a PDF, saves it to object storage and records the document.
func (s *Service) Upload(ctx context.Context, userID, fileName string, r io.Reader) (Document, error) {
	if strings.TrimSpace(userID) == "" {
		return Document{}, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	fileName = strings.TrimSpace(filepath.Base(fileName))
	if fileName == "" || fileName == "." {
		return Document{}, fmt.Errorf("%w: file name required", ErrInvalidInput)
	}

	data, err := readLimited(r, s.maxBytes())
	if err != nil {
		return Document{}, err
	}
	if len(data) == 0 {
		return Document{}, fmt.Errorf("%w: empty file", ErrInvalidInput)
	}
	if !isPDF(data) {
		return Document{}, fmt.Errorf("%w: only PDF files are accepted", ErrInvalidInput)
	}

	storageKey, err := object.NewKey(userID, fileName)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	size, err := s.Store.Put(ctx, storageKey, mimePDF, bytes.NewReader(data))
	if err != nil {
		return Document{}, fmt.Errorf("store document: %w", err)
	}

	doc := Document{
		ID:           uuid.NewString(),
		UserID:       userID,
		OriginalName: fileName,
		MimeType:     mimePDF,
		SizeBytes:    size,
		StorageKey:   storageKey,
		CreatedAt:    s.now(),
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		if delErr := s.Store.Delete(ctx, storageKey); delErr != nil {
			telemetry.Warn("document.orphaned_object", map[string]any{
				"document_id": doc.ID,
				"error":       delErr,
			})
		}
		return Document{}, fmt.Errorf("record document: %w", err)
	}
	return doc, nil
}

// Get returns a document owned by userID.
func (s *Service) Get(ctx context.Context, userID, documentID string) (Document, error) {
	if strings.TrimSpace(userID) == "" {
		return Document{}, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	if strings.TrimSpace(documentID) == "" {
		return Document{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, userID, documentID)
}

// List returns the user's documents, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// Fetch returns the raw bytes of a document after checking ownership.
func (s *Service) Fetch(ctx context.Context, userID, documentID string) ([]byte, error) {
	doc, err := s.Get(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}
	return s.ReadContent(ctx, doc)
}

// ReadContent returns the raw bytes of an already resolved document.
func (s *Service) ReadContent(ctx context.Context, doc Document) ([]byte, error) {
	if doc.SizeBytes > s.maxBytes() {
		return nil, ErrTooLarge
	}
	body, err := s.Store.Open(ctx, doc.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("open document %s: %w", doc.ID, err)
	}
	defer body.Close()
	return readLimited(body, s.maxBytes())
}

// CacheExtractedText stores extracted text on the document record.
func (s *Service) CacheExtractedText(ctx context.Context, doc Document, text string) error {
	return s.Repo.UpdateExtractedText(ctx, doc.UserID, doc.ID, text, s.now())
}

func (s *Service) maxBytes() int64 {
	if s.MaxBytes > 0 {
		return s.MaxBytes
	}
	return DefaultMaxBytes
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, ErrTooLarge
		}
		return nil, fmt.Errorf("read document: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}

func isPDF(data []byte) bool {
	if http.DetectContentType(data) == mimePDF {
		return true
	}
	return bytes.HasPrefix(data, []byte("%PDF-"))
}
