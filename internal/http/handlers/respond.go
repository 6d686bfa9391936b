package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"wastenot/internal/domain"
	applog "wastenot/internal/log"
)

type APIResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Data      any       `json:"data,omitempty"`
	Error     *APIError `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func requestID(c *fiber.Ctx) string {
	rid, _ := c.Locals("requestid").(string)
	return rid
}

func ok(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
		RequestID: requestID(c),
	})
}

func failWith(c *fiber.Ctx, status int, code, message string, details map[string]any) error {
	return c.Status(status).JSON(APIResponse{
		Success:   false,
		Message:   message,
		Error:     &APIError{Code: code, Message: message, Details: details},
		Timestamp: time.Now().UTC(),
		RequestID: requestID(c),
	})
}

// fail maps the error taxonomy onto HTTP statuses. Unknown errors become a
// generic 500; their text goes to the log only.
func fail(c *fiber.Ctx, action string, err error) error {
	var de *domain.Error
	if !errors.As(err, &de) {
		applog.Error(c, action, err, nil)
		return failWith(c, fiber.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Something went wrong. Please try again.", nil)
	}
	details := map[string]any{}
	if de.Entity != "" {
		details["entity"] = de.Entity
	}
	if de.ID != "" {
		details["id"] = de.ID
	}
	if de.Field != "" {
		details["field"] = de.Field
	}
	msg := de.Error()

	switch de.Kind {
	case domain.KindNotFound:
		return failWith(c, fiber.StatusNotFound, "NOT_FOUND", msg, details)
	case domain.KindInvalidInput:
		applog.Warn(c, "validation.fail", err, details)
		return failWith(c, fiber.StatusBadRequest, "BAD_REQUEST", msg, details)
	case domain.KindInvalidStateTransition:
		return failWith(c, fiber.StatusConflict, "INVALID_STATE", msg, details)
	case domain.KindConflict:
		applog.Warn(c, action, err, details)
		return failWith(c, fiber.StatusConflict, "CONFLICT", msg, details)
	case domain.KindStorageUnavailable:
		applog.Error(c, action, err, nil)
		return failWith(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "storage unavailable", nil)
	}
	applog.Error(c, action, err, details)
	return failWith(c, fiber.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Something went wrong. Please try again.", nil)
}

func badBody(c *fiber.Ctx, err error) error {
	applog.Warn(c, "validation.fail", err, map[string]any{"field": "body"})
	return failWith(c, fiber.StatusBadRequest, "BAD_REQUEST", "request body must be valid JSON", map[string]any{"field": "body"})
}

func badField(c *fiber.Ctx, field, msg string) error {
	return fail(c, "validation.fail", domain.InvalidInput(field, msg))
}

// ErrorHandler is the app-level fallback for errors that escape a handler.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
		applog.Warn(c, "server.client_error", err, nil)
		return failWith(c, fe.Code, strings.ToUpper(strings.ReplaceAll(utils.StatusMessage(fe.Code), " ", "_")), fe.Message, nil)
	}
	applog.Error(c, "server.error", err, nil)
	return failWith(c, fiber.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Something went wrong. Please try again.", nil)
}

func NotFound(c *fiber.Ctx) error {
	return failWith(c, fiber.StatusNotFound, "NOT_FOUND", "route not found", nil)
}
