package controller

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/wech4801-eng/mirror-frame-forge/internal/service"
)

type WorkflowController struct {
	WorkflowService *service.WorkflowService
	Logger          *zap.Logger
}

func (c *WorkflowController) Routes(r chiRouter) {
	r.Get("/", c.List)
	r.Post("/", create(c.Logger, c.WorkflowService.Create))
	r.Get("/templates", c.Templates)
	r.Post("/from-template", c.FromTemplate)
	r.Get("/{id}", get(c.Logger, c.WorkflowService.Get))
	r.Put("/{id}", update(c.Logger, c.WorkflowService.Update))
	r.Delete("/{id}", remove(c.Logger, c.WorkflowService.Delete))
	r.Put("/{id}/status", c.SetStatus)
}

func (c *WorkflowController) List(w http.ResponseWriter, r *http.Request) {
	workflows, p, err := c.WorkflowService.List(r.Context(), UserID(r.Context()), r.URL.Query().Get("status"), pageRequest(r))
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	writeList(w, workflows, p)
}

func (c *WorkflowController) Templates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"data": c.WorkflowService.Templates()})
}

func (c *WorkflowController) FromTemplate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Key  string `json:"key"`
		Name string `json:"name"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, c.Logger, err)
		return
	}
	wf, err := c.WorkflowService.CreateFromTemplate(r.Context(), UserID(r.Context()), body.Key, body.Name)
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, wf)
}

func (c *WorkflowController) SetStatus(w http.ResponseWriter, r *http.Request) {
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
	wf, err := c.WorkflowService.SetStatus(r.Context(), UserID(r.Context()), id, body.Status)
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, wf)
}
