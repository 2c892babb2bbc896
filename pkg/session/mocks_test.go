package session

import (
	"context"
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shouni/gemini-inpaint-kit/pkg/domain"
	"github.com/shouni/gemini-inpaint-kit/pkg/generator"
	"github.com/shouni/gemini-inpaint-kit/pkg/imgutil"
	"github.com/shouni/gemini-inpaint-kit/pkg/storage"
)

// mockInpainter は generator.Inpainter のテスト用モックなのだ。
type mockInpainter struct {
	mu        sync.Mutex
	requests  []domain.InpaintRequest
	inpaintFn func(ctx context.Context, req domain.InpaintRequest) (*domain.ImageResponse, error)
}

func (m *mockInpainter) Inpaint(ctx context.Context, req domain.InpaintRequest) (*domain.ImageResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	fn := m.inpaintFn
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, req)
	}
	return nil, nil
}

func (m *mockInpainter) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *mockInpainter) lastRequest() domain.InpaintRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[len(m.requests)-1]
}

// mockExporter は Exporter のテスト用モックなのだ。
type mockExporter struct {
	paths []string
	metas []*storage.Metadata
	err   error
}

func (m *mockExporter) Save(path string, img image.Image, meta *storage.Metadata) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.paths = append(m.paths, path)
	m.metas = append(m.metas, meta)
	return path, nil
}

var (
	red  = color.RGBA{255, 0, 0, 255}
	blue = color.RGBA{0, 0, 255, 255}
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func pngOf(t *testing.T, img image.Image) []byte {
	t.Helper()
	data, err := imgutil.EncodePNG(img)
	require.NoError(t, err)
	return data
}

// respondWith は固定の画像を返す inpaintFn を作るのだ。
func respondWith(t *testing.T, img image.Image) func(context.Context, domain.InpaintRequest) (*domain.ImageResponse, error) {
	data := pngOf(t, img)
	return func(context.Context, domain.InpaintRequest) (*domain.ImageResponse, error) {
		return &domain.ImageResponse{Data: data, MimeType: "image/png"}, nil
	}
}

// newTestSession は実際の Orchestrator とモックの Inpainter でセッションを組み立てるのだ。
func newTestSession(t *testing.T, inp *mockInpainter, opts ...Option) *Session {
	t.Helper()
	orch, err := generator.NewOrchestrator(inp, imgutil.DefaultThreshold)
	require.NoError(t, err)
	s, err := New(orch, opts...)
	require.NoError(t, err)
	return s
}
