package controller

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/wech4801-eng/mirror-frame-forge/internal/service"
)

type BrandingController struct {
	BrandingService *service.BrandingService
	Logger          *zap.Logger
}

func (c *BrandingController) Routes(r chiRouter) {
	r.Get("/", listAll(c.Logger, c.BrandingService.List))
	r.Post("/", create(c.Logger, c.BrandingService.Create))
	r.Get("/{id}", get(c.Logger, c.BrandingService.Get))
	r.Put("/{id}", update(c.Logger, c.BrandingService.Update))
	r.Delete("/{id}", remove(c.Logger, c.BrandingService.Delete))
	r.Post("/{id}/default", action(c.Logger, c.BrandingService.SetDefault))
	r.Post("/{id}/logo", c.UploadLogo)
}

// UploadLogo expects the image in the multipart "logo" field.
func (c *BrandingController) UploadLogo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	file, header, err := uploadFile(r, "logo")
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	defer file.Close()

	b, err := c.BrandingService.UploadLogo(r.Context(), UserID(r.Context()), id, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}
