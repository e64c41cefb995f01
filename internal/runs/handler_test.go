package runs

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T) (*gin.Engine, *MemoryRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	repo := NewMemoryRepo()
	h := NewHandler(NewService(repo))
	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"))
	return r, repo
}

func TestCreateRunEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	body, _ := json.Marshal(map[string]string{
		"siteUrl":   "https://acme.example",
		"brandName": "Acme",
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var run Run
	if err := json.Unmarshal(w.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if run.ID == "" || run.Status != StatusPending {
		t.Fatalf("unexpected run: %+v", run)
	}
}

func TestCreateRunEndpointRejectsBadInput(t *testing.T) {
	r, _ := newTestRouter(t)

	body, _ := json.Marshal(map[string]string{"brandName": "Acme"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetRunEndpointNotFound(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/nope", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestPauseEndpointConflictWhenNotExecuting(t *testing.T) {
	r, repo := newTestRouter(t)

	svc := NewService(repo)
	run, err := svc.Create(context.Background(), CreateInput{SiteURL: "https://acme.example", BrandName: "Acme"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs/"+run.ID+"/pause", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestDeleteRunEndpoint(t *testing.T) {
	r, repo := newTestRouter(t)

	svc := NewService(repo)
	run, err := svc.Create(context.Background(), CreateInput{SiteURL: "https://acme.example", BrandName: "Acme"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/runs/"+run.ID, nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
}
