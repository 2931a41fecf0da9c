package controller

import (
	"go.uber.org/zap"

	"github.com/wech4801-eng/mirror-frame-forge/internal/service"
)

type RoutingController struct {
	RoutingService *service.RoutingService
	Logger         *zap.Logger
}

func (c *RoutingController) Routes(r chiRouter) {
	r.Get("/", listAll(c.Logger, c.RoutingService.List))
	r.Post("/", create(c.Logger, c.RoutingService.Create))
	r.Get("/{id}", get(c.Logger, c.RoutingService.Get))
	r.Put("/{id}", update(c.Logger, c.RoutingService.Update))
	r.Delete("/{id}", remove(c.Logger, c.RoutingService.Delete))
}
