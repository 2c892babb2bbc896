package generator

import (
	"context"
	"sync"

	"github.com/shouni/gemini-inpaint-kit/pkg/domain"
)

// --- Mocks ---

type mockInpainter struct {
	mu        sync.Mutex
	calls     []domain.InpaintRequest
	inpaintFn func(ctx context.Context, req domain.InpaintRequest) (*domain.ImageResponse, error)
}

func (m *mockInpainter) Inpaint(ctx context.Context, req domain.InpaintRequest) (*domain.ImageResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()
	if m.inpaintFn != nil {
		return m.inpaintFn(ctx, req)
	}
	return nil, nil
}

func (m *mockInpainter) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
