package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/shouni/gemini-inpaint-kit/pkg/domain"
	"github.com/shouni/gemini-inpaint-kit/pkg/generator"
	"github.com/shouni/gemini-inpaint-kit/pkg/imgutil"
)

// inpaintResponse はエンドポイントの応答です。成功時は imageUrl、失敗時は error が入ります。
type inpaintResponse struct {
	ImageURL string `json:"imageUrl"`
	Error    string `json:"error"`
}

// HTTPInpainter は、image / mask / prompt / apiKey を multipart で POST する汎用エンドポイント用アダプターです。
// 応答の imageUrl は data URL か http(s) URL のどちらでも受け付けます。
type HTTPInpainter struct {
	httpClient       HTTPClient
	endpoint         string
	allowPrivateURLs bool
}

var _ generator.Inpainter = (*HTTPInpainter)(nil)

// NewHTTPInpainter は依存関係を注入して初期化します。
// allowPrivateURLs が false の場合、結果 URL の取得前に SSRF チェックを行います。
func NewHTTPInpainter(httpClient HTTPClient, endpoint string, allowPrivateURLs bool) (*HTTPInpainter, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("httpClient is required")
	}
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	return &HTTPInpainter{
		httpClient:       httpClient,
		endpoint:         endpoint,
		allowPrivateURLs: allowPrivateURLs,
	}, nil
}

// Inpaint は要求を 1 回だけ送信し、応答の画像参照を解決します。
func (h *HTTPInpainter) Inpaint(ctx context.Context, req domain.InpaintRequest) (*domain.ImageResponse, error) {
	body, contentType, err := encodeMultipart(req)
	if err != nil {
		return nil, fmt.Errorf("failed to build request body: %w", err)
	}

	slog.DebugContext(ctx, "HTTPインペイント要求", "endpoint", h.endpoint, "body_bytes", len(body))

	raw, err := h.httpClient.PostRawBodyAndFetchBytes(ctx, h.endpoint, body, contentType)
	if err != nil {
		if msg := upstreamMessage(err.Error()); msg != "" {
			return nil, domain.NewUpstreamError(msg, err)
		}
		return nil, classifyRemoteError(ctx, err, "inpainting request")
	}

	var payload inpaintResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, domain.NewUpstreamError("malformed response from inpainting service", err)
	}
	if payload.Error != "" {
		return nil, domain.NewUpstreamError(payload.Error, nil)
	}
	if payload.ImageURL == "" {
		return nil, domain.NewUpstreamError("no image URL in response", nil)
	}

	data, mimeType, err := h.resolveImage(ctx, payload.ImageURL)
	if err != nil {
		return nil, err
	}
	return &domain.ImageResponse{
		Data:     data,
		MimeType: mimeType,
		UsedSeed: 0,
	}, nil
}

func (h *HTTPInpainter) resolveImage(ctx context.Context, ref string) ([]byte, string, error) {
	if strings.HasPrefix(ref, "data:") {
		data, mimeType, err := imgutil.DecodeDataURL(ref)
		if err != nil {
			return nil, "", domain.NewDecodeError("image data URL could not be decoded", err)
		}
		return data, mimeType, nil
	}

	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		return nil, "", domain.NewUpstreamError(fmt.Sprintf("unsupported image reference: %.64s", ref), nil)
	}
	if !h.allowPrivateURLs {
		if safe, err := generator.IsSafeURL(ref); err != nil || !safe {
			slog.WarnContext(ctx, "SSRFの可能性がある、または不正なURLをブロックしました", "url", ref, "error", err)
			return nil, "", domain.NewUpstreamError("image URL rejected", err)
		}
	}

	data, err := h.httpClient.FetchBytes(ctx, ref)
	if err != nil {
		return nil, "", classifyRemoteError(ctx, err, "image download")
	}
	return data, http.DetectContentType(data), nil
}

func encodeMultipart(req domain.InpaintRequest) ([]byte, string, error) {
	buf := new(bytes.Buffer)
	w := multipart.NewWriter(buf)

	files := []struct {
		field string
		data  []byte
	}{
		{"image", req.Image},
		{"mask", req.Mask},
	}
	for _, f := range files {
		fw, err := w.CreateFormFile(f.field, f.field+".png")
		if err != nil {
			return nil, "", err
		}
		if _, err := fw.Write(f.data); err != nil {
			return nil, "", err
		}
	}
	if err := w.WriteField("prompt", req.Prompt); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("apiKey", req.Credential); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// upstreamMessage は、非 2xx 応答のエラー文に埋め込まれた {"error": "..."} を取り出します。
func upstreamMessage(errText string) string {
	start := strings.Index(errText, "{")
	end := strings.LastIndex(errText, "}")
	if start < 0 || end <= start {
		return ""
	}
	var payload inpaintResponse
	if err := json.Unmarshal([]byte(errText[start:end+1]), &payload); err != nil {
		return ""
	}
	return payload.Error
}
