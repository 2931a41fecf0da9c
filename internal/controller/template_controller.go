package controller

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/wech4801-eng/mirror-frame-forge/internal/model"
	"github.com/wech4801-eng/mirror-frame-forge/internal/service"
)

type TemplateController struct {
	TemplateService *service.TemplateService
	Logger          *zap.Logger
}

func (c *TemplateController) Routes(r chiRouter) {
	r.Get("/", c.List)
	r.Post("/", create(c.Logger, c.TemplateService.Create))
	r.Get("/{id}", get(c.Logger, c.TemplateService.Get))
	r.Put("/{id}", update(c.Logger, c.TemplateService.Update))
	r.Delete("/{id}", remove(c.Logger, c.TemplateService.Delete))
	r.Post("/{id}/preview", c.Preview)
}

func (c *TemplateController) List(w http.ResponseWriter, r *http.Request) {
	templates, p, err := c.TemplateService.List(r.Context(), UserID(r.Context()), r.URL.Query().Get("category"), pageRequest(r))
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	writeList(w, templates, p)
}

// Preview renders the template against an optional sample prospect body.
func (c *TemplateController) Preview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	var sample *model.Prospect
	if r.ContentLength > 0 {
		sample = &model.Prospect{}
		if err := decode(r, sample); err != nil {
			writeError(w, c.Logger, err)
			return
		}
	}
	subject, content, err := c.TemplateService.Preview(r.Context(), UserID(r.Context()), id, sample)
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"subject": subject, "content": content})
}
