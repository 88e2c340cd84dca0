package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"vostcard-gateway/internal/apierror"
)

func decodeRequestBody[T any](c echo.Context, target *T) error {
	req := c.Request()
	defer req.Body.Close()

	req.Body = http.MaxBytesReader(c.Response(), req.Body, maxBodyBytes)

	decoder := json.NewDecoder(req.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return apierror.Validation("Request body is required", "")
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &apierror.Error{
				Kind:    apierror.KindValidation,
				Status:  http.StatusRequestEntityTooLarge,
				Message: fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit),
			}
		}
		return apierror.Validation("Invalid JSON payload", err.Error())
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return apierror.Validation("Request body must contain a single JSON object", "")
	}
	return nil
}

// jsonErrorHandler renders every error as {"error": ..., "details": ...}.
func jsonErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		writeError(c, apiErr.Status, apiErr.Body())
		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		message := http.StatusText(httpErr.Code)
		if m, ok := httpErr.Message.(string); ok && m != "" {
			message = m
		}
		writeError(c, httpErr.Code, apierror.Body{Error: message})
		return
	}

	slog.Error("unhandled handler error", "uri", c.Request().RequestURI, "err", err)
	writeError(c, http.StatusInternalServerError, apierror.Body{Error: "Internal server error"})
}

func writeError(c echo.Context, status int, body apierror.Body) {
	var err error
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		slog.Error("failed to write error response", "err", err)
	}
}
