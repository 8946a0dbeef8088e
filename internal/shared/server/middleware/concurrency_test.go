package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestConcurrencyRejectsWhenSaturated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	entered := make(chan struct{})
	release := make(chan struct{})

	r := gin.New()
	r.POST("/slow", Concurrency(1), func(c *gin.Context) {
		entered <- struct{}{}
		<-release
		c.Status(http.StatusOK)
	})

	var wg sync.WaitGroup
	first := httptest.NewRecorder()
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/slow", nil))
	}()
	<-entered

	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/slow", nil))
	if second.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", second.Code)
	}

	close(release)
	wg.Wait()
	if first.Code != http.StatusOK {
		t.Fatalf("expected first request 200, got %d", first.Code)
	}

	third := httptest.NewRecorder()
	go func() { <-entered }()
	r.ServeHTTP(third, httptest.NewRequest(http.MethodPost, "/slow", nil))
	if third.Code != http.StatusOK {
		t.Fatalf("expected slot to be released, got %d", third.Code)
	}
}
