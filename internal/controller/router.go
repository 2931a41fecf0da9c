package controller

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/wech4801-eng/mirror-frame-forge/internal/service"
)

type chiRouter = chi.Router

// UploadsPath is where RouterConfig.Uploads is mounted.
const UploadsPath = "/uploads"

// Services bundles what the HTTP layer calls into.
type Services struct {
	Prospects    *service.ProspectService
	Groups       *service.GroupService
	Templates    *service.TemplateService
	Campaigns    *service.CampaignService
	Workflows    *service.WorkflowService
	Webinars     *service.WebinarService
	LandingPages *service.LandingPageService
	Brandings    *service.BrandingService
	Routing      *service.RoutingService
	Domains      *service.DomainService
}

type RouterConfig struct {
	Services Services
	Logger   *zap.Logger
	// Metrics serves /metrics when set.
	Metrics http.Handler
	// Realtime serves the websocket endpoint when set.
	Realtime http.Handler
	// Uploads serves stored objects under UploadsPath when set. Only the
	// in-memory store needs it; S3 URLs point at the bucket.
	Uploads http.Handler
	// Ready reports whether dependencies are reachable, for /healthz.
	Ready         func(*http.Request) error
	FormRateLimit float64
	FormRateBurst int
}

func NewRouter(cfg RouterConfig) http.Handler {
	s, logger := cfg.Services, cfg.Logger

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if cfg.Ready != nil {
			if err := cfg.Ready(req); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}
	if cfg.Realtime != nil {
		r.Method(http.MethodGet, "/realtime/webinars/{id}", cfg.Realtime)
	}
	if cfg.Uploads != nil {
		r.Method(http.MethodGet, UploadsPath+"/*", http.StripPrefix(UploadsPath, cfg.Uploads))
	}

	pages := &LandingPageController{LandingPageService: s.LandingPages, Logger: logger}
	webinars := &WebinarController{WebinarService: s.Webinars, Logger: logger}

	limiter := NewIPRateLimiter(cfg.FormRateLimit, cfg.FormRateBurst)
	r.Get("/p/{slug}", pages.PublicView)
	r.With(limiter.Middleware(logger)).Post("/p/{slug}/submit", pages.Submit)
	r.Post("/invitations/{id}/respond", webinars.RespondInvitation)

	r.Group(func(r chi.Router) {
		r.Use(RequireUser(logger))
		r.Use(middleware.Timeout(60 * time.Second))

		functions := &FunctionController{CampaignService: s.Campaigns, DomainService: s.Domains, Logger: logger}
		r.Post("/functions/v1/{name}", functions.Invoke)

		r.Route("/api", func(r chi.Router) {
			prospects := &ProspectController{ProspectService: s.Prospects, Logger: logger}
			r.Route("/prospects", func(r chi.Router) {
				r.Get("/", prospects.List)
				r.Post("/", prospects.Create)
				r.Post("/import", prospects.Import)
				r.Post("/import/preview", prospects.PreviewImport)
				r.Post("/bulk-delete", prospects.BulkDelete)
				r.Get("/{id}", prospects.Get)
				r.Put("/{id}", prospects.Update)
				r.Delete("/{id}", prospects.Delete)
				r.Put("/{id}/groups", prospects.SetGroups)
			})
			r.Route("/groups", (&GroupController{GroupService: s.Groups, Logger: logger}).Routes)
			r.Route("/templates", (&TemplateController{TemplateService: s.Templates, Logger: logger}).Routes)
			r.Route("/campaigns", (&CampaignController{CampaignService: s.Campaigns, Logger: logger}).Routes)
			r.Route("/workflows", (&WorkflowController{WorkflowService: s.Workflows, Logger: logger}).Routes)
			r.Route("/webinars", webinars.Routes)
			r.Route("/landing-pages", pages.Routes)
			r.Route("/brandings", (&BrandingController{BrandingService: s.Brandings, Logger: logger}).Routes)
			r.Route("/routing-rules", (&RoutingController{RoutingService: s.Routing, Logger: logger}).Routes)
			r.Route("/domains", (&DomainController{DomainService: s.Domains, Logger: logger}).Routes)
		})
	})
	return r
}
