package web

import (
	"github.com/defistate/token-launcher-go/launch"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

// LaunchProblem is the problem document returned for a launch that did not
// complete. It embeds the RFC 7807 fields and carries the sealed result.
type LaunchProblem struct {
	*problems.Problem
	Stage    launch.Stage            `json:"stage,omitempty"`
	Kind     launch.ErrorKind        `json:"kind"`
	Cause    launch.ErrorKind        `json:"cause,omitempty"`
	Guidance string                  `json:"guidance,omitempty"`
	TxHash   string                  `json:"tx_hash,omitempty"`
	Fields   launch.ValidationErrors `json:"fields,omitempty"`
	Result   *launch.WorkflowResult  `json:"result,omitempty"`
}

// statusForKind maps a failure kind to its HTTP status.
func statusForKind(kind launch.ErrorKind) int {
	switch kind {
	case launch.KindValidation:
		return fiber.StatusBadRequest
	case launch.KindPreflightRejection, launch.KindRevert:
		return fiber.StatusUnprocessableEntity
	case launch.KindPartialAuthorization:
		return fiber.StatusConflict
	case launch.KindSubmissionFailure:
		return fiber.StatusBadGateway
	case launch.KindTimeout:
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func invalidRequest(c fiber.Ctx, fields launch.ValidationErrors) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType(string(launch.KindValidation)).
		WithDetail(fields.Error())

	return c.Status(fiber.StatusBadRequest).JSON(LaunchProblem{
		Problem: problem,
		Kind:    launch.KindValidation,
		Fields:  fields,
	})
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType("run_in_progress").
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// launchFailed renders a sealed, not completed result.
func launchFailed(c fiber.Ctx, result *launch.WorkflowResult) error {
	f := result.Failure
	if f == nil {
		f = &launch.Failure{Kind: launch.KindInternal, Detail: "launch finished with status " + string(result.Status)}
	}

	status := statusForKind(f.Kind)
	problem := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(string(f.Kind)).
		WithDetail(f.Detail)

	body := LaunchProblem{
		Problem:  problem,
		Stage:    f.Stage,
		Kind:     f.Kind,
		Cause:    f.Cause,
		Guidance: f.Guidance,
		Fields:   f.Fields,
		Result:   result,
	}
	if f.TxHash != nil {
		body.TxHash = f.TxHash.Hex()
	}
	return c.Status(status).JSON(body)
}
