package api

import (
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/manga-orchestrator/pkg/apperrors"
)

// bindJSON binds the request body into out, distinguishing an absent body
// from a malformed one per spec §6's MISSING_BODY/INVALID_JSON codes.
func bindJSON(c *echo.Context, out any) error {
	if c.Request().ContentLength == 0 {
		return apperrors.New(apperrors.KindValidation, "request body is required").WithCode("MISSING_BODY")
	}
	if err := c.Bind(out); err != nil {
		return apperrors.Wrap(err, apperrors.KindValidation, "malformed JSON body").WithCode("INVALID_JSON")
	}
	return nil
}

// writeError translates err into the error envelope spec §6 defines,
// setting Retry-After on a 429 per the rate-limit contract of §4.6/§4.7.
func (s *Server) writeError(c *echo.Context, err error) error {
	status := apperrors.GetStatusCode(err)
	code := apperrors.GetCode(err)
	msg := apperrors.SafeErrorMessage(err)

	if status == http.StatusTooManyRequests {
		c.Response().Header().Set("Retry-After", "300")
	}

	body := map[string]any{
		"code":      code,
		"message":   msg,
		"requestId": requestIDFrom(c),
		"timestamp": nowISO8601(),
	}
	for k, v := range apperrors.GetContext(err) {
		body[k] = v
	}

	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "status", status, "code", code, "error", err)
	} else {
		slog.Warn("request failed", "status", status, "code", code, "error", err)
	}
	return c.JSON(status, map[string]any{"error": body})
}
