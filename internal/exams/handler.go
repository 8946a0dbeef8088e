package exams

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"quizgen-backend/internal/shared/server/middleware"
	"quizgen-backend/internal/shared/server/respond"
)

// Handler serves stored tests.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches test routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/tests", h.list)
	rg.GET("/tests/:id", h.get)
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	testID := c.Param("id")
	c.Set(middleware.TestIDKey, testID)

	test, err := h.Svc.Get(c.Request.Context(), userID, testID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "test not found", nil)
		case errors.Is(err, ErrForbidden):
			respond.Error(c, http.StatusForbidden, "forbidden", "test belongs to another user", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch test", nil)
		}
		return
	}
	respond.OK(c, "test", test)
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	limit := queryInt(c, "limit", 20)
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	offset := queryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	tests, err := h.Svc.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list tests", nil)
		return
	}
	if tests == nil {
		tests = []Test{}
	}
	respond.OK(c, "tests", tests)
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
