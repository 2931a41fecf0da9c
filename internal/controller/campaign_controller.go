// internal/controller/campaign_controller.go
package controller

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/wech4801-eng/mirror-frame-forge/internal/errors"
	"github.com/wech4801-eng/mirror-frame-forge/internal/model"
	"github.com/wech4801-eng/mirror-frame-forge/internal/service"
)

type CampaignController struct {
	CampaignService *service.CampaignService
	Logger          *zap.Logger
}

func (c *CampaignController) Routes(r chiRouter) {
	r.Get("/", c.ListCampaigns)
	r.Post("/", create(c.Logger, c.CampaignService.CreateCampaign))
	r.Get("/{id}", get(c.Logger, c.CampaignService.GetCampaignDetailsWithStats))
	r.Put("/{id}", update(c.Logger, c.CampaignService.UpdateCampaign))
	r.Delete("/{id}", remove(c.Logger, c.CampaignService.DeleteCampaign))
	r.Post("/{id}/schedule", c.Schedule)
	r.Post("/{id}/unschedule", action(c.Logger, c.CampaignService.Unschedule))
	r.Post("/{id}/preview", c.PersonalizedPreview)
	r.Get("/{id}/recipients", c.ListRecipients)
	r.Post("/{id}/send", action(c.Logger, c.CampaignService.SendCampaign))
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := model.CampaignFilter{
		UserID: UserID(r.Context()),
		Status: q.Get("status"),
		Search: strings.TrimSpace(q.Get("search")),
	}
	campaigns, pagination, err := c.CampaignService.ListCampaigns(r.Context(), f, pageRequest(r))
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	writeList(w, campaigns, pagination)
}

func (c *CampaignController) Schedule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	var body struct {
		ScheduledAt *time.Time `json:"scheduled_at"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, c.Logger, err)
		return
	}
	if body.ScheduledAt == nil {
		writeError(w, c.Logger, appErrors.Validation("scheduled_at is required"))
		return
	}
	campaign, err := c.CampaignService.Schedule(r.Context(), UserID(r.Context()), id, *body.ScheduledAt)
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

func (c *CampaignController) PersonalizedPreview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	var body struct {
		ProspectID uuid.UUID `json:"prospect_id"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, c.Logger, err)
		return
	}
	preview, err := c.CampaignService.RenderPreview(r.Context(), UserID(r.Context()), id, body.ProspectID)
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (c *CampaignController) ListRecipients(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	recipients, pagination, err := c.CampaignService.ListRecipients(r.Context(), UserID(r.Context()), id, r.URL.Query().Get("status"), pageRequest(r))
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	writeList(w, recipients, pagination)
}
