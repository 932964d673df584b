package generation

import (
	"encoding/json"

	"github.com/go-resty/resty/v2"

	"github.com/codeready-toolchain/manga-orchestrator/pkg/apperrors"
)

// providerErrorBody is the error shape both generation endpoints return on
// a non-2xx response. code mirrors spec §7's permanent provider kinds.
type providerErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// classifyProviderResponse maps a resty response's status and body to an
// *apperrors.AppError, or nil on success. 5xx and 429 are Transient; the
// distinguished permanent kinds (ContentFiltered, ModelNotFound,
// InvalidPrompt) are mapped by error code; anything else non-2xx is
// Internal.
func classifyProviderResponse(resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}

	status := resp.StatusCode()
	if status == 429 || status >= 500 {
		return apperrors.Newf(apperrors.KindTransient, "provider returned status %d", status)
	}

	var body providerErrorBody
	_ = json.Unmarshal(resp.Body(), &body) // best-effort; falls through to the generic mapping below

	switch body.Code {
	case "content_filtered":
		return apperrors.NewContentFilteredError(body.Message)
	case "model_not_found":
		return apperrors.NewModelNotFoundError(body.Message)
	case "invalid_prompt":
		return apperrors.NewInvalidPromptError(body.Message)
	}
	return apperrors.Newf(apperrors.KindInternal, "provider returned status %d", status)
}
