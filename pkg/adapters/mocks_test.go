package adapters

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"testing"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/shouni/gemini-inpaint-kit/pkg/imgutil"
)

// mockHTTPClient は HTTPClient のテスト用モックなのだ。
type mockHTTPClient struct {
	fetchFn func(ctx context.Context, url string) ([]byte, error)
	postFn  func(ctx context.Context, url string, body []byte, contentType string) ([]byte, error)

	fetchedURLs []string
	postedURL   string
	postedBody  []byte
	postedType  string
}

func (m *mockHTTPClient) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	m.fetchedURLs = append(m.fetchedURLs, url)
	if m.fetchFn != nil {
		return m.fetchFn(ctx, url)
	}
	return nil, fmt.Errorf("unexpected fetch: %s", url)
}

func (m *mockHTTPClient) PostRawBodyAndFetchBytes(ctx context.Context, url string, body []byte, contentType string) ([]byte, error) {
	m.postedURL, m.postedBody, m.postedType = url, body, contentType
	if m.postFn != nil {
		return m.postFn(ctx, url, body, contentType)
	}
	return nil, fmt.Errorf("unexpected post: %s", url)
}

// mockModel は GenerativeModel のテスト用モックなのだ。
type mockModel struct {
	generateFn func(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error)
	calls      int
}

func (m *mockModel) GenerateWithParts(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error) {
	m.calls++
	if m.generateFn != nil {
		return m.generateFn(ctx, model, parts, opts)
	}
	return nil, nil
}

// mockReader は remoteio.InputReader のテスト用モックなのだ。
type mockReader struct {
	files map[string][]byte
}

func (m *mockReader) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	data, ok := m.files[uri]
	if !ok {
		return nil, fmt.Errorf("not found: %s", uri)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *mockReader) List(ctx context.Context, uri string, fn func(string) error) error {
	for k := range m.files {
		if err := fn(k); err != nil {
			return err
		}
	}
	return nil
}

// pngBytes は単色の PNG を作るヘルパーなのだ。
func pngBytes(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	data, err := imgutil.EncodePNG(img)
	require.NoError(t, err)
	return data
}

func imageResponse(data []byte, mimeType string) *gemini.Response {
	return &gemini.Response{RawResponse: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Parts: []*genai.Part{{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}}}},
			FinishReason: genai.FinishReasonStop,
		}},
	}}
}
