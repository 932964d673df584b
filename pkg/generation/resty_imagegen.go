package generation

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/codeready-toolchain/manga-orchestrator/pkg/apperrors"
)

// RestyImageGen is the production ImageGen adapter: a REST client to an
// external image-model provider over the same resty transport as
// RestyTextGen, against a distinct endpoint/payload shape (spec §1, "B.
// DOMAIN STACK").
type RestyImageGen struct {
	client *resty.Client
}

// NewRestyImageGen builds an ImageGen client against baseURL.
func NewRestyImageGen(baseURL, apiKey string, timeout time.Duration) *RestyImageGen {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Authorization", "Bearer "+apiKey).
		SetRetryCount(0) // the per-scene retry policy (C10) is owned by the caller
	return &RestyImageGen{client: client}
}

type generateImageRequest struct {
	Prompt string `json:"prompt"`
}

type generateImageResponse struct {
	ImageBase64 string `json:"imageBase64"`
}

func (g *RestyImageGen) Generate(ctx context.Context, prompt string) (ImageResult, error) {
	var out generateImageResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(generateImageRequest{Prompt: prompt}).
		SetResult(&out).
		Post("/v1/images")
	if err != nil {
		return ImageResult{}, apperrors.NewTransientError(err, "generate image")
	}
	if appErr := classifyProviderResponse(resp); appErr != nil {
		return ImageResult{}, appErr
	}

	data, err := base64.StdEncoding.DecodeString(out.ImageBase64)
	if err != nil {
		return ImageResult{}, apperrors.Wrap(err, apperrors.KindTransient, "decode image payload")
	}
	return ImageResult{ImageData: data}, nil
}

var _ ImageGen = (*RestyImageGen)(nil)
