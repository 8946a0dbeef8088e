package generation

// GenerateRequest is the body of POST /tests/generate.
type GenerateRequest struct {
	PDFIDs       []string `json:"pdf_ids"`
	NumQuestions *int     `json:"num_questions"`
}
