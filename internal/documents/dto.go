package documents

import "time"

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	ID           string     `json:"id"`
	OriginalName string     `json:"original_name"`
	MimeType     string     `json:"mime_type"`
	SizeBytes    int64      `json:"file_size"`
	Extracted    bool       `json:"extracted"`
	ExtractedAt  *time.Time `json:"extracted_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toResponse(doc Document) DocumentResponse {
	return DocumentResponse{
		ID:           doc.ID,
		OriginalName: doc.OriginalName,
		MimeType:     doc.MimeType,
		SizeBytes:    doc.SizeBytes,
		Extracted:    doc.HasExtractedText(),
		ExtractedAt:  doc.ExtractedAt,
		CreatedAt:    doc.CreatedAt,
	}
}
