package generator

import (
	"context"

	"github.com/shouni/gemini-inpaint-kit/pkg/domain"
)

// Inpainter は、ベース画像・マスク・指示文から新しい画像を生成する外部バックエンドのインターフェースです。
type Inpainter interface {
	// Inpaint は 1 回だけ要求を送り、1 回だけ応答を待ちます。リトライはしません。
	Inpaint(ctx context.Context, req domain.InpaintRequest) (*domain.ImageResponse, error)
}
