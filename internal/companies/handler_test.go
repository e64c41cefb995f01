package companies

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newHandlerRouter(t *testing.T, svc *Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(svc).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func serveJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateCompanyEndpoint(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeLLM{})
	router := newHandlerRouter(t, svc)

	rec := serveJSON(router, http.MethodPost, "/api/v1/companies",
		`{"name":"Acme Inc","brandName":"Acme","siteUrl":"https://acme.example"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var company Company
	if err := json.Unmarshal(rec.Body.Bytes(), &company); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if company.ID == "" || company.Language != "en" {
		t.Fatalf("unexpected company: %+v", company)
	}
}

func TestCreateCompanyValidation(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeLLM{})
	router := newHandlerRouter(t, svc)

	rec := serveJSON(router, http.MethodPost, "/api/v1/companies", `{"name":"Acme Inc"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetCompanyNotFound(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeLLM{})
	router := newHandlerRouter(t, svc)

	rec := serveJSON(router, http.MethodGet, "/api/v1/companies/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestPromptLifecycleEndpoints(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeLLM{})
	company := seedCompany(t, svc)
	router := newHandlerRouter(t, svc)

	added := serveJSON(router, http.MethodPost, "/api/v1/companies/"+company.ID+"/prompts",
		`{"question":"What are the best widget brands?","intent":"comparison"}`)
	if added.Code != http.StatusCreated {
		t.Fatalf("add status = %d, body = %s", added.Code, added.Body.String())
	}
	var prompt struct {
		ID     string `json:"id"`
		Active bool   `json:"active"`
	}
	if err := json.Unmarshal(added.Body.Bytes(), &prompt); err != nil {
		t.Fatalf("decode prompt: %v", err)
	}
	if prompt.ID == "" || !prompt.Active {
		t.Fatalf("unexpected prompt: %+v", prompt)
	}

	deactivated := serveJSON(router, http.MethodPatch, "/api/v1/companies/"+company.ID+"/prompts/"+prompt.ID,
		`{"active":false}`)
	if deactivated.Code != http.StatusNoContent {
		t.Fatalf("patch status = %d, body = %s", deactivated.Code, deactivated.Body.String())
	}

	missingFlag := serveJSON(router, http.MethodPatch, "/api/v1/companies/"+company.ID+"/prompts/"+prompt.ID, `{}`)
	if missingFlag.Code != http.StatusBadRequest {
		t.Fatalf("patch without flag status = %d, want 400", missingFlag.Code)
	}

	list := serveJSON(router, http.MethodGet, "/api/v1/companies/"+company.ID+"/prompts", "")
	if list.Code != http.StatusOK {
		t.Fatalf("list status = %d", list.Code)
	}
	var listBody struct {
		Prompts []struct {
			Active bool `json:"active"`
		} `json:"prompts"`
	}
	if err := json.Unmarshal(list.Body.Bytes(), &listBody); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listBody.Prompts) != 1 || listBody.Prompts[0].Active {
		t.Fatalf("unexpected prompts: %+v", listBody.Prompts)
	}
}

func TestExecuteWithoutPromptsFails(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeLLM{})
	company := seedCompany(t, svc)
	router := newHandlerRouter(t, svc)

	rec := serveJSON(router, http.MethodPost, "/api/v1/companies/"+company.ID+"/execute", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body = %s", rec.Code, rec.Body.String())
	}
}
