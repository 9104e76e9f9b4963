package util

import (
	"runtime/debug"

	"github.com/gofiber/fiber/v2"
)

type ErrorResponseFormat struct {
	Code       int
	Message    string
	DevMessage string
	Details    any
	Trace      string
	// Debug adds the underlying error and a stack trace to the body.
	Debug bool
}

type OrderedErrorResponse struct {
	Detail     string `json:"detail"`
	DevMessage string `json:"dev_message,omitempty"`
	Details    any    `json:"details,omitempty"`
	Trace      string `json:"trace,omitempty"`
}

// ErrorResponse sends the standard error body {"detail": ...}.
func ErrorResponse(c *fiber.Ctx, params ErrorResponseFormat, errs ...error) error {
	response := OrderedErrorResponse{
		Detail: params.Message,
	}
	if params.Details != nil {
		response.Details = params.Details
	}
	if params.Debug {
		if len(errs) > 0 && errs[0] != nil {
			response.DevMessage = errs[0].Error()
			response.Trace = string(debug.Stack())
		}
		if params.DevMessage != "" {
			response.DevMessage = params.DevMessage
		}
		if params.Trace != "" {
			response.Trace = params.Trace
		}
	}

	errorCode := params.Code
	if params.Code == 0 {
		errorCode = fiber.StatusInternalServerError
	}
	return c.Status(errorCode).JSON(response)
}
