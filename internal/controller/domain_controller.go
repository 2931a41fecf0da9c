package controller

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/wech4801-eng/mirror-frame-forge/internal/service"
)

type DomainController struct {
	DomainService *service.DomainService
	Logger        *zap.Logger
}

func (c *DomainController) Routes(r chiRouter) {
	r.Get("/", listAll(c.Logger, c.DomainService.List))
	r.Post("/", c.Verify)
	r.Get("/{id}", get(c.Logger, c.DomainService.Get))
	r.Delete("/{id}", remove(c.Logger, c.DomainService.Delete))
	r.Post("/{id}/check", action(c.Logger, c.DomainService.CheckStatus))
}

func (c *DomainController) Verify(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Domain string `json:"domain"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, c.Logger, err)
		return
	}
	d, err := c.DomainService.Verify(r.Context(), UserID(r.Context()), body.Domain)
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}
