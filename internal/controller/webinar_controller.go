package controller

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/wech4801-eng/mirror-frame-forge/internal/service"
)

type WebinarController struct {
	WebinarService *service.WebinarService
	Logger         *zap.Logger
}

func (c *WebinarController) Routes(r chiRouter) {
	r.Get("/", c.List)
	r.Post("/", create(c.Logger, c.WebinarService.Create))
	r.Get("/{id}", get(c.Logger, c.WebinarService.Get))
	r.Put("/{id}", update(c.Logger, c.WebinarService.Update))
	r.Delete("/{id}", remove(c.Logger, c.WebinarService.Delete))
	r.Post("/{id}/start", action(c.Logger, c.WebinarService.Start))
	r.Post("/{id}/end", action(c.Logger, c.WebinarService.End))
	r.Get("/{id}/invitations", get(c.Logger, c.WebinarService.ListInvitations))
	r.Post("/{id}/invitations", update(c.Logger, c.WebinarService.Invite))
	r.Get("/{id}/chat", c.ListChat)
	r.Post("/{id}/chat", c.PostChat)
}

func (c *WebinarController) List(w http.ResponseWriter, r *http.Request) {
	webinars, p, err := c.WebinarService.List(r.Context(), UserID(r.Context()), r.URL.Query().Get("status"), pageRequest(r))
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	writeList(w, webinars, p)
}

func (c *WebinarController) ListChat(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	messages, err := c.WebinarService.ListChat(r.Context(), id, limit)
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": messages})
}

func (c *WebinarController) PostChat(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	var body struct {
		SenderName string `json:"sender_name"`
		Message    string `json:"message"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, c.Logger, err)
		return
	}
	m, err := c.WebinarService.PostChat(r.Context(), id, body.SenderName, body.Message)
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// RespondInvitation is public: the invitation id is the credential.
func (c *WebinarController) RespondInvitation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, c.Logger, err)
		return
	}
	inv, err := c.WebinarService.RespondInvitation(r.Context(), id, body.Status)
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}
