package controller

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	appErrors "github.com/wech4801-eng/mirror-frame-forge/internal/errors"
	"github.com/wech4801-eng/mirror-frame-forge/internal/service"
)

type LandingPageController struct {
	LandingPageService *service.LandingPageService
	Logger             *zap.Logger
}

func (c *LandingPageController) Routes(r chiRouter) {
	r.Get("/", c.List)
	r.Post("/", create(c.Logger, c.LandingPageService.Create))
	r.Get("/{id}", get(c.Logger, c.LandingPageService.Get))
	r.Put("/{id}", update(c.Logger, c.LandingPageService.Update))
	r.Delete("/{id}", remove(c.Logger, c.LandingPageService.Delete))
	r.Post("/{id}/publish", action(c.Logger, c.LandingPageService.Publish))
	r.Post("/{id}/unpublish", action(c.Logger, c.LandingPageService.Unpublish))
}

func (c *LandingPageController) List(w http.ResponseWriter, r *http.Request) {
	pages, p, err := c.LandingPageService.List(r.Context(), UserID(r.Context()), pageRequest(r))
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	writeList(w, pages, p)
}

func (c *LandingPageController) PublicView(w http.ResponseWriter, r *http.Request) {
	page, err := c.LandingPageService.PublicView(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Submit accepts the form as JSON or as an urlencoded form post.
func (c *LandingPageController) Submit(w http.ResponseWriter, r *http.Request) {
	values := map[string]string{}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := decode(r, &values); err != nil {
			writeError(w, c.Logger, err)
			return
		}
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			writeError(w, c.Logger, appErrors.Validation("invalid form: %v", err))
			return
		}
		for k := range r.PostForm {
			values[k] = r.PostForm.Get(k)
		}
	}

	if _, err := c.LandingPageService.Submit(r.Context(), chi.URLParam(r, "slug"), values); err != nil {
		writeError(w, c.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]bool{"success": true})
}
