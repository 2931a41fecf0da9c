package controller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/wech4801-eng/mirror-frame-forge/internal/errors"
	"github.com/wech4801-eng/mirror-frame-forge/internal/model"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

type ctxKey int

const userIDKey ctxKey = iota

// ListResponse is the envelope of every paginated endpoint.
type ListResponse struct {
	Data       any              `json:"data"`
	Pagination model.Pagination `json:"pagination"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeList(w http.ResponseWriter, data any, p model.Pagination) {
	writeJSON(w, http.StatusOK, ListResponse{Data: data, Pagination: p})
}

// writeError maps err to its structured response. Internal causes are
// logged and never sent to the client.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	e := appErrors.AsStructuredError(err)
	status := e.HTTPStatus()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, e.ToResponse())
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return appErrors.Validation("request body is required")
		}
		return appErrors.Validation("invalid request body: %v", err)
	}
	return nil
}

func withUser(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserID returns the caller set by RequireUser.
func UserID(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(userIDKey).(uuid.UUID)
	return id
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, appErrors.Validation("invalid %s %q", name, raw)
	}
	return id, nil
}

func queryID(r *http.Request, name string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, appErrors.Validation("invalid %s %q", name, raw)
	}
	return &id, nil
}

// pageRequest reads page and page_size; bad values fall back to defaults.
func pageRequest(r *http.Request) model.PageRequest {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))
	return model.PageRequest{Page: page, PageSize: size}.Normalize()
}

type idsBody struct {
	IDs []uuid.UUID `json:"ids"`
}
