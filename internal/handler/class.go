package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/Corner-Boxing/corner-backend/internal/config"
	"github.com/Corner-Boxing/corner-backend/internal/model"
	"github.com/Corner-Boxing/corner-backend/internal/planner"
	"github.com/Corner-Boxing/corner-backend/internal/service"
	"github.com/Corner-Boxing/corner-backend/internal/store"
	"github.com/Corner-Boxing/corner-backend/pkg/response"
)

type ClassHandler struct {
	service       *service.ClassService
	validator     *validator.Validate
	strictInput   bool
	defaultLength int
}

func NewClassHandler(svc *service.ClassService, v *validator.Validate, planCfg config.PlanConfig) *ClassHandler {
	return &ClassHandler{
		service:       svc,
		validator:     v,
		strictInput:   planCfg.StrictInput,
		defaultLength: planCfg.DefaultLength,
	}
}

// Generate handles POST /api/generate
func (h *ClassHandler) Generate(c *fiber.Ctx) error {
	var req model.GenerateRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.ValidationError(c, "Invalid request body", nil)
		}
	}

	params, perr := h.params(req)
	if perr != nil {
		return perr.send(c)
	}

	result, err := h.service.Submit(c.Context(), params)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, result)
}

// Status handles GET /api/jobs/:jobId
func (h *ClassHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.GetStatus(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// DebugGenerate handles GET /api/debug-generate and returns the plan only
func (h *ClassHandler) DebugGenerate(c *fiber.Ctx) error {
	req := model.GenerateRequest{
		Difficulty: c.Query("difficulty"),
		Length:     model.ParseFlexInt(c.Query("length")),
		Pace:       c.Query("pace"),
		Music:      c.Query("music"),
	}

	params, perr := h.params(req)
	if perr != nil {
		return perr.send(c)
	}

	return response.OK(c, h.service.Preview(params))
}

type paramError struct {
	message string
	details interface{}
}

func (e *paramError) send(c *fiber.Ctx) error {
	return response.ValidationError(c, e.message, e.details)
}

func (h *ClassHandler) params(req model.GenerateRequest) (model.ClassParams, *paramError) {
	params, err := planner.ParseParams(req, h.strictInput, h.defaultLength)
	if err != nil {
		return params, &paramError{message: err.Error()}
	}
	if err := h.validator.Struct(&params); err != nil {
		return params, &paramError{message: "Validation failed", details: formatValidationErrors(err)}
	}
	return params, nil
}

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		fields := make(map[string]string)
		for _, e := range validationErrors {
			fields[e.Field()] = e.Tag()
		}
		return fields
	}
	return nil
}
