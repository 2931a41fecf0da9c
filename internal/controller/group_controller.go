package controller

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wech4801-eng/mirror-frame-forge/internal/service"
)

type GroupController struct {
	GroupService *service.GroupService
	Logger       *zap.Logger
}

func (c *GroupController) Routes(r chiRouter) {
	r.Get("/", listAll(c.Logger, c.GroupService.List))
	r.Post("/", create(c.Logger, c.GroupService.Create))
	r.Get("/{id}", get(c.Logger, c.GroupService.Get))
	r.Put("/{id}", update(c.Logger, c.GroupService.Update))
	r.Delete("/{id}", remove(c.Logger, c.GroupService.Delete))
	r.Post("/{id}/members", c.members(true))
	r.Delete("/{id}/members", c.members(false))
}

// members adds or removes the prospects listed in {"prospect_ids": [...]}.
func (c *GroupController) members(add bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, c.Logger, err)
			return
		}
		var body struct {
			ProspectIDs []uuid.UUID `json:"prospect_ids"`
		}
		if err := decode(r, &body); err != nil {
			writeError(w, c.Logger, err)
			return
		}

		fn, key := c.GroupService.RemoveMembers, "removed"
		if add {
			fn, key = c.GroupService.AddMembers, "added"
		}
		n, err := fn(r.Context(), UserID(r.Context()), id, body.ProspectIDs)
		if err != nil {
			writeError(w, c.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{key: n})
	}
}
