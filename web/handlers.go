package web

import (
	"context"
	"errors"
	"log/slog"

	"github.com/defistate/token-launcher-go/launch"
	"github.com/defistate/token-launcher-go/orchestrator"
	"github.com/defistate/token-launcher-go/store"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// Launcher runs launches and reads their persisted history.
type Launcher interface {
	Launch(ctx context.Context, req *launch.LaunchRequest) (*launch.WorkflowResult, error)
	History(ctx context.Context, requestID string) ([]store.Record, error)
}

type APIHandlers struct {
	launcher  Launcher
	validator *validator.Validate
	logger    *slog.Logger
}

func NewAPIHandlers(launcher Launcher, validator *validator.Validate, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		launcher:  launcher,
		validator: validator,
		logger:    logger,
	}
}

// CreateLaunch runs a launch to a terminal status. A completed launch returns
// the result; any other status returns a problem document carrying it.
func (h *APIHandlers) CreateLaunch(c fiber.Ctx) error {
	var body LaunchRequest
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(body); err != nil {
		return invalidRequest(c, fieldErrors(err))
	}

	req, err := body.ToLaunchRequest()
	if err != nil {
		var fields launch.ValidationErrors
		if errors.As(err, &fields) {
			return invalidRequest(c, fields)
		}
		return badRequest(c, err.Error())
	}

	result, err := h.launcher.Launch(c.Context(), req)
	if err != nil {
		if errors.Is(err, orchestrator.ErrRunInProgress) {
			return conflict(c, err.Error())
		}
		h.logger.Error("Launch could not start", "error", err)
		return internalError(c, err)
	}

	if result.Status != launch.StatusCompleted {
		return launchFailed(c, result)
	}
	return c.JSON(result)
}

// GetLaunch returns the persisted stage records of a request.
func (h *APIHandlers) GetLaunch(c fiber.Ctx) error {
	requestID := c.Params("requestID")
	if requestID == "" {
		return badRequest(c, "Request ID is required")
	}

	records, err := h.launcher.History(c.Context(), requestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(c, "Launch not found")
		}
		return internalError(c, err)
	}

	return c.JSON(NewLaunchHistoryResponse(requestID, records))
}
