package controller

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/wech4801-eng/mirror-frame-forge/internal/errors"
	"github.com/wech4801-eng/mirror-frame-forge/internal/service"
)

// FunctionController serves the named functions under /functions/v1.
type FunctionController struct {
	CampaignService *service.CampaignService
	DomainService   *service.DomainService
	Logger          *zap.Logger
}

type functionRequest struct {
	CampaignID uuid.UUID `json:"campaign_id"`
	DomainID   uuid.UUID `json:"domain_id"`
	Domain     string    `json:"domain"`
}

func (c *FunctionController) functions() map[string]func(context.Context, uuid.UUID, functionRequest) (any, error) {
	return map[string]func(context.Context, uuid.UUID, functionRequest) (any, error){
		"send-campaign": func(ctx context.Context, user uuid.UUID, req functionRequest) (any, error) {
			if req.CampaignID == uuid.Nil {
				return nil, appErrors.Validation("campaign_id is required")
			}
			return c.CampaignService.SendCampaign(ctx, user, req.CampaignID)
		},
		"verify-domain": func(ctx context.Context, user uuid.UUID, req functionRequest) (any, error) {
			return c.DomainService.Verify(ctx, user, req.Domain)
		},
		"check-domain-status": func(ctx context.Context, user uuid.UUID, req functionRequest) (any, error) {
			if req.DomainID == uuid.Nil {
				return nil, appErrors.Validation("domain_id is required")
			}
			return c.DomainService.CheckStatus(ctx, user, req.DomainID)
		},
	}
}

func (c *FunctionController) Invoke(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	fn, ok := c.functions()[name]
	if !ok {
		writeError(w, c.Logger, appErrors.NotFound("function", name))
		return
	}
	var req functionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, c.Logger, err)
		return
	}
	out, err := fn(r.Context(), UserID(r.Context()), req)
	if err != nil {
		c.Logger.Warn("function failed", zap.String("function", name), zap.Error(err))
		writeError(w, c.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": out})
}
