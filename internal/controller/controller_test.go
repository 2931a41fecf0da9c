package controller_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wech4801-eng/mirror-frame-forge/internal/controller"
	appErrors "github.com/wech4801-eng/mirror-frame-forge/internal/errors"
	"github.com/wech4801-eng/mirror-frame-forge/internal/model"
	"github.com/wech4801-eng/mirror-frame-forge/internal/provider"
	"github.com/wech4801-eng/mirror-frame-forge/internal/repository"
	"github.com/wech4801-eng/mirror-frame-forge/internal/service"
	"github.com/wech4801-eng/mirror-frame-forge/internal/storage"
)

// --- Mock Repositories ---

type memWorkflowRepo struct {
	items map[uuid.UUID]*model.Workflow
	order []uuid.UUID
}

func (r *memWorkflowRepo) Create(_ context.Context, w *model.Workflow) error {
	w.ID = uuid.New()
	r.items[w.ID] = w
	r.order = append(r.order, w.ID)
	return nil
}

func (r *memWorkflowRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Workflow, error) {
	w, ok := r.items[id]
	if !ok {
		return nil, appErrors.NotFound("workflow", id)
	}
	return w, nil
}

func (r *memWorkflowRepo) List(_ context.Context, userID uuid.UUID, status string, page model.PageRequest) ([]*model.Workflow, int, error) {
	var all []*model.Workflow
	for _, id := range r.order {
		if w, ok := r.items[id]; ok && w.UserID == userID && (status == "" || w.Status == status) {
			all = append(all, w)
		}
	}
	start := min(page.Offset(), len(all))
	end := min(start+page.Limit(), len(all))
	return all[start:end], len(all), nil
}

func (r *memWorkflowRepo) Update(_ context.Context, w *model.Workflow) error {
	r.items[w.ID] = w
	return nil
}

func (r *memWorkflowRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.items[id]; !ok {
		return appErrors.NotFound("workflow", id)
	}
	delete(r.items, id)
	return nil
}

type memDomainRepo struct {
	items map[uuid.UUID]*model.EmailDomain
}

func (r *memDomainRepo) Create(_ context.Context, d *model.EmailDomain) error {
	d.ID = uuid.New()
	r.items[d.ID] = d
	return nil
}

func (r *memDomainRepo) GetByID(_ context.Context, id uuid.UUID) (*model.EmailDomain, error) {
	d, ok := r.items[id]
	if !ok {
		return nil, appErrors.NotFound("domain", id)
	}
	return d, nil
}

func (r *memDomainRepo) List(_ context.Context, userID uuid.UUID) ([]*model.EmailDomain, error) {
	out := []*model.EmailDomain{}
	for _, d := range r.items {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *memDomainRepo) Update(_ context.Context, d *model.EmailDomain) error {
	r.items[d.ID] = d
	return nil
}

func (r *memDomainRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.items, id)
	return nil
}

var (
	_ repository.WorkflowRepositoryInterface    = (*memWorkflowRepo)(nil)
	_ repository.EmailDomainRepositoryInterface = (*memDomainRepo)(nil)
)

// --- Helpers ---

type testServer struct {
	handler http.Handler
	user    uuid.UUID
}

func newTestServer(t *testing.T, cfg func(*controller.RouterConfig)) *testServer {
	t.Helper()
	logger := zap.NewNop()
	workflows, err := service.NewWorkflowService(&memWorkflowRepo{items: map[uuid.UUID]*model.Workflow{}}, logger)
	require.NoError(t, err)
	domains := &service.DomainService{
		DomainRepo: &memDomainRepo{items: map[uuid.UUID]*model.EmailDomain{}},
		Provider:   provider.NewLogProvider(logger),
		Logger:     logger,
	}

	rc := controller.RouterConfig{
		Services:      controller.Services{Workflows: workflows, Domains: domains},
		Logger:        logger,
		FormRateLimit: 1,
		FormRateBurst: 2,
	}
	if cfg != nil {
		cfg(&rc)
	}
	return &testServer{handler: controller.NewRouter(rc), user: uuid.New()}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if s.user != uuid.Nil {
		req.Header.Set(controller.UserHeader, s.user.String())
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// --- Tests ---

func TestHealthz(t *testing.T) {
	s := newTestServer(t, nil)
	s.user = uuid.Nil

	w := s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	s = newTestServer(t, func(c *controller.RouterConfig) {
		c.Ready = func(*http.Request) error { return errors.New("database unreachable") }
	})
	w = s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAPIRequiresUserHeader(t *testing.T) {
	s := newTestServer(t, nil)
	s.user = uuid.Nil

	w := s.do(t, http.MethodGet, "/api/workflows", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	resp := decodeBody[appErrors.ErrorResponse](t, w)
	assert.Equal(t, appErrors.TypeUnauthorized, resp.Type)

	req := httptest.NewRequest(http.MethodGet, "/api/workflows", nil)
	req.Header.Set(controller.UserHeader, "not-a-uuid")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWorkflowEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/api/workflows/templates", nil)
	require.Equal(t, http.StatusOK, w.Code)
	templates := decodeBody[struct {
		Data []service.WorkflowTemplate `json:"data"`
	}](t, w)
	require.NotEmpty(t, templates.Data)

	w = s.do(t, http.MethodPost, "/api/workflows/from-template", map[string]string{"key": "welcome-series"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeBody[model.Workflow](t, w)
	assert.Equal(t, "Welcome series", created.Name)
	assert.Equal(t, model.WorkflowDraft, created.Status)

	w = s.do(t, http.MethodPut, "/api/workflows/"+created.ID.String()+"/status", map[string]string{"status": model.WorkflowActive})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, model.WorkflowActive, decodeBody[model.Workflow](t, w).Status)

	for range 2 {
		w = s.do(t, http.MethodPost, "/api/workflows", map[string]any{"name": "Draft flow"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodGet, "/api/workflows?page=2&page_size=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeBody[struct {
		Data       []model.Workflow `json:"data"`
		Pagination model.Pagination `json:"pagination"`
	}](t, w)
	assert.Len(t, list.Data, 1)
	assert.Equal(t, model.Pagination{Page: 2, PageSize: 2, TotalCount: 3, TotalPages: 2}, list.Pagination)

	w = s.do(t, http.MethodDelete, "/api/workflows/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(t, http.MethodGet, "/api/workflows/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOtherUsersResourceIsNotFound(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodPost, "/api/workflows", map[string]any{"name": "Mine"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeBody[model.Workflow](t, w).ID

	s.user = uuid.New()
	w = s.do(t, http.MethodGet, "/api/workflows/"+id.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBadRequests(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/api/workflows/not-an-id", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/workflows", bytes.NewBufferString("{"))
	req.Header.Set(controller.UserHeader, s.user.String())
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, appErrors.TypeValidation, decodeBody[appErrors.ErrorResponse](t, rec).Type)
}

func TestFunctions(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/functions/v1/launch-rockets", map[string]string{})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/functions/v1/verify-domain", map[string]string{"domain": "https://Mail.Example.com/"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	verified := decodeBody[struct {
		Success bool              `json:"success"`
		Data    model.EmailDomain `json:"data"`
	}](t, w)
	assert.True(t, verified.Success)
	assert.Equal(t, "mail.example.com", verified.Data.Domain)
	assert.Equal(t, model.DomainPending, verified.Data.Status)
	assert.NotEmpty(t, verified.Data.Records)

	w = s.do(t, http.MethodPost, "/functions/v1/check-domain-status", map[string]string{"domain_id": verified.Data.ID.String()})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	checked := decodeBody[struct {
		Data model.EmailDomain `json:"data"`
	}](t, w)
	assert.Equal(t, model.DomainVerified, checked.Data.Status)

	w = s.do(t, http.MethodPost, "/functions/v1/check-domain-status", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/functions/v1/verify-domain", map[string]string{"domain": "not a domain"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInternalErrorsHideCause(t *testing.T) {
	s := newTestServer(t, func(c *controller.RouterConfig) {
		c.Services.Domains.DomainRepo = failingDomainRepo{&memDomainRepo{items: map[uuid.UUID]*model.EmailDomain{}}}
	})
	w := s.do(t, http.MethodGet, "/api/domains", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeBody[appErrors.ErrorResponse](t, w)
	assert.NotContains(t, resp.Error, "connection refused")
}

type failingDomainRepo struct{ *memDomainRepo }

func (failingDomainRepo) List(context.Context, uuid.UUID) ([]*model.EmailDomain, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func TestIPRateLimiter(t *testing.T) {
	l := controller.NewIPRateLimiter(0.001, 2)
	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"))
}

func TestMetricsAndRealtimeMounts(t *testing.T) {
	var hits []string
	s := newTestServer(t, func(c *controller.RouterConfig) {
		c.Metrics = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { hits = append(hits, "metrics") })
		c.Realtime = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { hits = append(hits, "realtime") })
	})
	s.user = uuid.Nil
	s.do(t, http.MethodGet, "/metrics", nil)
	s.do(t, http.MethodGet, "/realtime/webinars/"+uuid.NewString(), nil)
	assert.Equal(t, []string{"metrics", "realtime"}, hits)
}

func TestUploadsMount(t *testing.T) {
	store := storage.NewMemoryStore(controller.UploadsPath)
	url, err := store.Put(context.Background(), "logos/u/logo.png", "image/png", []byte("png"))
	require.NoError(t, err)

	s := newTestServer(t, func(c *controller.RouterConfig) { c.Uploads = store })
	s.user = uuid.Nil
	w := s.do(t, http.MethodGet, url, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "png", w.Body.String())

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, controller.UploadsPath+"/logos/u/other.png", nil).Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := controller.NewIPRateLimiter(0.001, 2)
	h := limiter.Middleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/p/spring-offer/submit", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, codes)
}
