package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Corner-Boxing/corner-backend/internal/assets"
)

const assetCheckTimeout = 3 * time.Second

type HealthHandler struct {
	resolver *assets.Resolver
	probeRef string
	services fiber.Map
}

// NewHealthHandler reports services as given and checks that probeRef
// (usually the intro cue) can be found in the asset library.
func NewHealthHandler(resolver *assets.Resolver, probeRef string, services fiber.Map) *HealthHandler {
	return &HealthHandler{resolver: resolver, probeRef: probeRef, services: services}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), assetCheckTimeout)
	defer cancel()

	services := fiber.Map{}
	for k, v := range h.services {
		services[k] = v
	}

	assetCheck := fiber.Map{"ref": h.probeRef, "reachable": true}
	status := "ok"
	if _, err := h.resolver.Fixed(ctx, h.probeRef); err != nil {
		assetCheck["reachable"] = false
		assetCheck["error"] = err.Error()
		status = "degraded"
	}
	services["assets"] = assetCheck

	return c.JSON(fiber.Map{
		"status":   status,
		"services": services,
	})
}
