package adapters

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"strings"

	"github.com/shouni/go-remote-io/pkg/remoteio"

	"github.com/shouni/gemini-inpaint-kit/pkg/generator"
	"github.com/shouni/gemini-inpaint-kit/pkg/imgutil"
)

// ImageSource は、編集対象のベース画像を URI から読み込みます。
// http(s) は HTTP クライアント、data: はその場でデコード、それ以外 (gs://, file://, ローカルパス) は InputReader に委譲します。
type ImageSource struct {
	reader           remoteio.InputReader
	httpClient       HTTPClient
	allowPrivateURLs bool
}

// NewImageSource は依存関係を注入して初期化します。httpClient は nil でも構いません (http(s) は拒否されます)。
func NewImageSource(reader remoteio.InputReader, httpClient HTTPClient, allowPrivateURLs bool) (*ImageSource, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader is required")
	}
	return &ImageSource{
		reader:           reader,
		httpClient:       httpClient,
		allowPrivateURLs: allowPrivateURLs,
	}, nil
}

// Load は画像を取得し、原点基準の RGBA にデコードして返します。
func (s *ImageSource) Load(ctx context.Context, uri string) (*image.RGBA, error) {
	data, err := s.fetch(ctx, uri)
	if err != nil {
		return nil, err
	}
	img, format, err := imgutil.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("画像のデコードに失敗しました (%s): %w", uri, err)
	}
	slog.DebugContext(ctx, "ベース画像を読み込みました", "uri", uri, "format", format,
		"width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	return img, nil
}

func (s *ImageSource) fetch(ctx context.Context, uri string) ([]byte, error) {
	switch {
	case uri == "":
		return nil, fmt.Errorf("image uri is required")
	case strings.HasPrefix(uri, "data:"):
		data, _, err := imgutil.DecodeDataURL(uri)
		return data, err
	case strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://"):
		if s.httpClient == nil {
			return nil, fmt.Errorf("http client is not configured: %s", uri)
		}
		if !s.allowPrivateURLs {
			if safe, err := generator.IsSafeURL(uri); err != nil || !safe {
				return nil, fmt.Errorf("安全ではないURLが指定されました: %s", uri)
			}
		}
		return s.httpClient.FetchBytes(ctx, uri)
	}

	rc, err := s.reader.Open(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("画像を開けませんでした (%s): %w", uri, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
