package adapters

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"

	"github.com/shouni/gemini-inpaint-kit/pkg/domain"
	"github.com/shouni/gemini-inpaint-kit/pkg/generator"
	"github.com/shouni/gemini-inpaint-kit/pkg/utils"
)

// DefaultGeminiModel は画像編集に使う既定のモデル名です。
const DefaultGeminiModel = "gemini-2.5-flash-image"

const inpaintSystemPrompt = "You are an image inpainting engine. The first image is the base image. " +
	"The second image is a binary mask of identical size: white pixels mark the region to regenerate, " +
	"black pixels must be reproduced exactly as in the base image. " +
	"Apply the user's instruction only inside the white region and return a single edited image of the same size."

// GenerativeModel は GeminiInpainter が利用するモデル呼び出しの契約です。
// go-gemini-client の gemini.GenerativeModel と GenAIModel の両方がこれを満たします。
type GenerativeModel interface {
	GenerateWithParts(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error)
}

// GeminiInpainter は、ベース画像とマスクを Gemini のマルチモーダル入力として送るアダプター層です。
type GeminiInpainter struct {
	aiClient GenerativeModel // 通信クライアント
	model    string          // 使用するモデル名
}

var _ generator.Inpainter = (*GeminiInpainter)(nil)

// NewGeminiInpainter は依存関係を注入して初期化します。
func NewGeminiInpainter(aiClient GenerativeModel, model string) (*GeminiInpainter, error) {
	if aiClient == nil {
		return nil, fmt.Errorf("aiClient (GenerativeModel) is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiInpainter{aiClient: aiClient, model: model}, nil
}

// Inpaint はドメインの要求を Gemini API の形式に変換して 1 回だけ実行します。
func (g *GeminiInpainter) Inpaint(ctx context.Context, req domain.InpaintRequest) (*domain.ImageResponse, error) {
	imagePart := ToPart(req.Image)
	maskPart := ToPart(req.Mask)
	if imagePart == nil || maskPart == nil {
		return nil, domain.NewValidationError("base image and mask must be encoded images")
	}

	parts := []*genai.Part{
		{Text: req.Prompt},
		imagePart,
		maskPart,
	}
	opts := gemini.GenerateOptions{
		SystemPrompt: inpaintSystemPrompt,
		Seed:         req.Seed,
	}

	slog.DebugContext(ctx, "Geminiインペイント要求", "model", g.model, "image_bytes", len(req.Image), "mask_bytes", len(req.Mask))

	resp, err := g.aiClient.GenerateWithParts(WithCredential(ctx, req.Credential), g.model, parts, opts)
	if err != nil {
		return nil, classifyRemoteError(ctx, err, "Gemini request")
	}

	return ParseToResponse(resp, utils.DereferenceSeed(req.Seed))
}
