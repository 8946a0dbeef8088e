package documents

import "time"

// Document is an uploaded PDF owned by a user. ExtractedText is nil until
// the text has been extracted once; later extractions overwrite it.
type Document struct {
	ID            string
	UserID        string
	OriginalName  string
	MimeType      string
	SizeBytes     int64
	StorageKey    string
	ExtractedText *string
	ExtractedAt   *time.Time
	CreatedAt     time.Time
}

// HasExtractedText reports whether a cached extraction is available.
func (d Document) HasExtractedText() bool {
	return d.ExtractedText != nil
}
