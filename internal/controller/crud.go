package controller

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wech4801-eng/mirror-frame-forge/internal/model"
)

// The helpers below cover the owner-scoped CRUD shape shared by most
// resources: decode, call the service with the caller id, write JSON.

func create[In, Out any](logger *zap.Logger, fn func(context.Context, uuid.UUID, In) (Out, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in In
		if err := decode(r, &in); err != nil {
			writeError(w, logger, err)
			return
		}
		out, err := fn(r.Context(), UserID(r.Context()), in)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, out)
	}
}

func get[Out any](logger *zap.Logger, fn func(context.Context, uuid.UUID, uuid.UUID) (Out, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, logger, err)
			return
		}
		out, err := fn(r.Context(), UserID(r.Context()), id)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// action is get for POST endpoints without a body (publish, start, ...).
func action[Out any](logger *zap.Logger, fn func(context.Context, uuid.UUID, uuid.UUID) (Out, error)) http.HandlerFunc {
	return get(logger, fn)
}

func update[In, Out any](logger *zap.Logger, fn func(context.Context, uuid.UUID, uuid.UUID, In) (Out, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, logger, err)
			return
		}
		var in In
		if err := decode(r, &in); err != nil {
			writeError(w, logger, err)
			return
		}
		out, err := fn(r.Context(), UserID(r.Context()), id, in)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func remove(logger *zap.Logger, fn func(context.Context, uuid.UUID, uuid.UUID) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, logger, err)
			return
		}
		if err := fn(r.Context(), UserID(r.Context()), id); err != nil {
			writeError(w, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// listAll serves unpaginated collections inside the list envelope.
func listAll[T any](logger *zap.Logger, fn func(context.Context, uuid.UUID) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := fn(r.Context(), UserID(r.Context()))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		page := model.PageRequest{Page: 1, PageSize: max(len(items), 1)}
		writeList(w, items, model.NewPagination(page, len(items)))
	}
}
