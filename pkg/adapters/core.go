package adapters

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"github.com/shouni/go-http-kit/pkg/httpkit"
	"google.golang.org/genai"

	"github.com/shouni/gemini-inpaint-kit/pkg/domain"
)

// HTTPClient は、アダプターが利用する HTTP 操作だけを切り出したインターフェースです。
// httpkit.ClientInterface はこれを満たします。
type HTTPClient interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
	PostRawBodyAndFetchBytes(ctx context.Context, url string, body []byte, contentType string) ([]byte, error)
}

var _ HTTPClient = httpkit.ClientInterface(nil)

type credentialKey struct{}

// WithCredential は、モデル呼び出しに使う API キーをコンテキストに載せます。
func WithCredential(ctx context.Context, credential string) context.Context {
	if credential == "" {
		return ctx
	}
	return context.WithValue(ctx, credentialKey{}, credential)
}

// CredentialFrom は、WithCredential で載せた API キーを取り出します。
func CredentialFrom(ctx context.Context) string {
	v, _ := ctx.Value(credentialKey{}).(string)
	return v
}

// ToPart はバイト列を genai.Part (InlineData) に変換します。画像でなければ nil です。
func ToPart(data []byte) *genai.Part {
	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		slog.Warn("MIMEタイプが画像ではないためPartに変換できませんでした", "detected_mime_type", mimeType)
		return nil
	}
	return &genai.Part{
		InlineData: &genai.Blob{
			MIMEType: mimeType,
			Data:     data,
		},
	}
}

// ParseToResponse は Gemini のレスポンスから最初の画像パーツを取り出します。
// 画像が無い応答は、転送が成功していても上流エラーとして扱います。
func ParseToResponse(resp *gemini.Response, seed int64) (*domain.ImageResponse, error) {
	if resp == nil || resp.RawResponse == nil || len(resp.RawResponse.Candidates) == 0 {
		return nil, domain.NewUpstreamError("Geminiからの有効な応答がありませんでした", nil)
	}

	// 最初の候補 (Candidate) のみを利用する
	candidate := resp.RawResponse.Candidates[0]
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return &domain.ImageResponse{
					Data:     part.InlineData.Data,
					MimeType: part.InlineData.MIMEType,
					UsedSeed: seed,
				}, nil
			}
		}
	}

	// 安全フィルター等によるブロックの確認
	switch candidate.FinishReason {
	case "", genai.FinishReasonUnspecified, genai.FinishReasonStop:
	default:
		return nil, domain.NewUpstreamError(fmt.Sprintf("画像生成が異常終了しました (FinishReason: %s)", candidate.FinishReason), nil)
	}
	if text := firstText(candidate); text != "" {
		return nil, domain.NewUpstreamError(text, nil)
	}
	return nil, domain.NewUpstreamError("画像データが見つかりませんでした", nil)
}

func firstText(candidate *genai.Candidate) string {
	if candidate.Content == nil {
		return ""
	}
	for _, part := range candidate.Content.Parts {
		if t := strings.TrimSpace(part.Text); t != "" {
			return t
		}
	}
	return ""
}

// classifyRemoteError は、バックエンド呼び出しのエラーを通信エラーと上流エラーに振り分けます。
func classifyRemoteError(ctx context.Context, err error, action string) error {
	if _, ok := domain.CodeOf(err); ok {
		return err
	}
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return domain.NewTransportError(action+" timed out", err)
	case errors.Is(err, context.Canceled):
		return domain.NewTransportError(action+" was cancelled", err)
	case errors.As(err, &netErr):
		return domain.NewTransportError(action+" failed", err)
	default:
		return domain.NewUpstreamError(err.Error(), err)
	}
}
