package generator

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/gemini-inpaint-kit/pkg/domain"
	"github.com/shouni/gemini-inpaint-kit/pkg/imgutil"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// paintedSnapshot は 20x20 の赤画像の左上 5x5 を白く塗ったスナップショットを返すのだ。
func paintedSnapshot() Snapshot {
	original := solid(20, 20, color.RGBA{255, 0, 0, 255})
	working := imgutil.Clone(original)
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			working.SetRGBA(x, y, color.RGBA{255, 255, 255, 255})
		}
	}
	return Snapshot{Original: original, Working: working, Instruction: "  add a blue circle ", Credential: "secret"}
}

func pngResponse(t *testing.T, img image.Image) *domain.ImageResponse {
	t.Helper()
	data, err := imgutil.EncodePNG(img)
	require.NoError(t, err)
	return &domain.ImageResponse{Data: data, MimeType: "image/png", UsedSeed: 7}
}

func TestNewOrchestrator(t *testing.T) {
	_, err := NewOrchestrator(nil, 20)
	assert.Error(t, err)
	_, err = NewOrchestrator(&mockInpainter{}, -1)
	assert.Error(t, err)
}

func TestOrchestrator_Prepare(t *testing.T) {
	o, err := NewOrchestrator(&mockInpainter{}, imgutil.DefaultThreshold)
	require.NoError(t, err)

	t.Run("ベース画像は元画像から作られストロークを含まないのだ", func(t *testing.T) {
		snap := paintedSnapshot()
		p, err := o.Prepare(snap)
		require.NoError(t, err)

		base, _, err := imgutil.Decode(p.Request.Image)
		require.NoError(t, err)
		assert.True(t, imgutil.Equal(snap.Original, base))
		assert.False(t, imgutil.Equal(snap.Working, base))

		mask, _, err := imgutil.Decode(p.Request.Mask)
		require.NoError(t, err)
		assert.Equal(t, base.Bounds(), mask.Bounds(), "マスクはベース画像と同じ寸法なのだ")
		assert.Equal(t, 25, p.MaskedPixels)
		assert.Equal(t, "add a blue circle", p.Request.Prompt)
		assert.Equal(t, "secret", p.Request.Credential)
		assert.Equal(t, 20, p.Request.Width)
		assert.Equal(t, "image/png", p.Request.MimeType)
	})

	t.Run("指示文が空なら検証エラーなのだ", func(t *testing.T) {
		snap := paintedSnapshot()
		snap.Instruction = "   "
		_, err := o.Prepare(snap)
		assert.True(t, domain.IsCode(err, domain.CodeValidation))
	})

	t.Run("何も描いていなければ検証エラーなのだ", func(t *testing.T) {
		snap := paintedSnapshot()
		snap.Working = imgutil.Clone(snap.Original)
		_, err := o.Prepare(snap)
		assert.True(t, domain.IsCode(err, domain.CodeValidation))
	})
}

func TestOrchestrator_Submit(t *testing.T) {
	ctx := context.Background()
	blue := solid(20, 20, color.RGBA{0, 0, 255, 255})

	t.Run("成功時はデコード済みの画像を返すのだ", func(t *testing.T) {
		m := &mockInpainter{inpaintFn: func(ctx context.Context, req domain.InpaintRequest) (*domain.ImageResponse, error) {
			return pngResponse(t, blue), nil
		}}
		o, _ := NewOrchestrator(m, imgutil.DefaultThreshold)

		res, err := o.Submit(ctx, paintedSnapshot())
		require.NoError(t, err)
		assert.True(t, imgutil.Equal(blue, res.Image))
		assert.Equal(t, "image/png", res.MimeType)
		assert.Equal(t, int64(7), res.UsedSeed)
		assert.Equal(t, 1, m.callCount())
	})

	t.Run("検証エラーではバックエンドを呼ばないのだ", func(t *testing.T) {
		m := &mockInpainter{}
		o, _ := NewOrchestrator(m, imgutil.DefaultThreshold)
		snap := paintedSnapshot()
		snap.Working = imgutil.Clone(snap.Original)

		_, err := o.Submit(ctx, snap)
		assert.True(t, domain.IsCode(err, domain.CodeValidation))
		assert.Zero(t, m.callCount())
	})

	t.Run("画像が無い応答は上流エラーなのだ", func(t *testing.T) {
		m := &mockInpainter{inpaintFn: func(ctx context.Context, req domain.InpaintRequest) (*domain.ImageResponse, error) {
			return &domain.ImageResponse{}, nil
		}}
		o, _ := NewOrchestrator(m, imgutil.DefaultThreshold)

		_, err := o.Submit(ctx, paintedSnapshot())
		assert.True(t, domain.IsCode(err, domain.CodeUpstream))
	})

	t.Run("壊れた画像はデコードエラーなのだ", func(t *testing.T) {
		m := &mockInpainter{inpaintFn: func(ctx context.Context, req domain.InpaintRequest) (*domain.ImageResponse, error) {
			return &domain.ImageResponse{Data: []byte("not an image")}, nil
		}}
		o, _ := NewOrchestrator(m, imgutil.DefaultThreshold)

		_, err := o.Submit(ctx, paintedSnapshot())
		assert.True(t, domain.IsCode(err, domain.CodeDecode))
	})

	t.Run("分類済みのエラーはそのまま返すのだ", func(t *testing.T) {
		upstream := domain.NewUpstreamError("quota exceeded", nil)
		m := &mockInpainter{inpaintFn: func(ctx context.Context, req domain.InpaintRequest) (*domain.ImageResponse, error) {
			return nil, upstream
		}}
		o, _ := NewOrchestrator(m, imgutil.DefaultThreshold)

		_, err := o.Submit(ctx, paintedSnapshot())
		assert.Same(t, upstream, err)
	})

	t.Run("未分類のエラーとタイムアウトは通信エラーなのだ", func(t *testing.T) {
		m := &mockInpainter{inpaintFn: func(ctx context.Context, req domain.InpaintRequest) (*domain.ImageResponse, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}}
		o, _ := NewOrchestrator(m, imgutil.DefaultThreshold)
		tctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()

		_, err := o.Submit(tctx, paintedSnapshot())
		require.True(t, domain.IsCode(err, domain.CodeTransport))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Contains(t, domain.UserMessage(err), "timed out")

		m.inpaintFn = func(ctx context.Context, req domain.InpaintRequest) (*domain.ImageResponse, error) {
			return nil, errors.New("connection reset by peer")
		}
		_, err = o.Submit(ctx, paintedSnapshot())
		assert.True(t, domain.IsCode(err, domain.CodeTransport))
	})
}

func TestOrchestrator_Mask(t *testing.T) {
	o, _ := NewOrchestrator(&mockInpainter{}, imgutil.DefaultThreshold)
	snap := paintedSnapshot()

	mask, err := o.Mask(snap.Original, snap.Working)
	require.NoError(t, err)
	assert.Equal(t, 25, imgutil.CountMasked(mask))
}
