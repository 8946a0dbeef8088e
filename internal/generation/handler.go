package generation

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"quizgen-backend/internal/documents"
	"quizgen-backend/internal/llm"
	"quizgen-backend/internal/shared/server/middleware"
	"quizgen-backend/internal/shared/server/respond"
)

// Handler exposes the generation pipeline over HTTP.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches the generate route. Extra middleware (rate
// limiting, concurrency caps) runs before the handler.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, mw ...gin.HandlerFunc) {
	rg.POST("/tests/generate", append(mw, h.generate)...)
}

func (h *Handler) generate(c *gin.Context) {
	var body GenerateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}

	test, err := h.Svc.Generate(c.Request.Context(), middleware.UserIDFromContext(c), Request{
		DocumentIDs:  body.PDFIDs,
		NumQuestions: body.NumQuestions,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.Set(middleware.TestIDKey, test.ID)
	respond.OK(c, "test", test)
}

func writeError(c *gin.Context, err error) {
	var (
		reqErr  *RequestValidationError
		aggErr  *AggregationError
		llmErr  *llm.Error
		valErr  *ValidationError
		persErr *PersistenceError
	)
	switch {
	case errors.Is(err, ErrUnauthorized):
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
	case errors.As(err, &reqErr):
		respond.Error(c, http.StatusBadRequest, "validation_error", reqErr.Detail, nil)
	case errors.Is(err, documents.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, documents.ErrForbidden):
		respond.Error(c, http.StatusForbidden, "forbidden", err.Error(), nil)
	case errors.As(err, &aggErr):
		respond.Error(c, http.StatusInternalServerError, "aggregation_error", "insufficient content extracted from documents", gin.H{
			"reason": aggErr.Reason,
			"detail": aggErr.Detail,
		})
	case errors.As(err, &llmErr):
		respond.Error(c, http.StatusInternalServerError, "generation_error", "question generation failed", gin.H{
			"reason":      llmErr.Reason,
			"status_code": llmErr.StatusCode,
		})
	case errors.As(err, &valErr):
		respond.Error(c, http.StatusInternalServerError, "invalid_output", "generated questions failed validation", gin.H{
			"reason": valErr.Reason,
			"detail": valErr.Detail,
		})
	case errors.As(err, &persErr):
		respond.Error(c, http.StatusInternalServerError, "persistence_error", "failed to save test", nil)
	case errors.Is(err, context.DeadlineExceeded):
		respond.Error(c, http.StatusInternalServerError, "generation_error", "generation timed out", gin.H{"reason": llm.ReasonTimeout})
	case errors.Is(err, context.Canceled):
		respond.Error(c, http.StatusInternalServerError, "generation_error", "generation canceled", gin.H{"reason": llm.ReasonCanceled})
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to generate test", nil)
	}
}
