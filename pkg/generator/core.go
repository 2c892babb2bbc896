package generator

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"

	"github.com/shouni/gemini-inpaint-kit/pkg/domain"
	"github.com/shouni/gemini-inpaint-kit/pkg/imgutil"
)

// Orchestrator は 1 回の生成試行につき 1 つのインペイント要求を組み立てて送信します。
type Orchestrator struct {
	inpainter Inpainter
	threshold int
}

// NewOrchestrator は依存関係を注入して Orchestrator を初期化します。
func NewOrchestrator(inpainter Inpainter, threshold int) (*Orchestrator, error) {
	if inpainter == nil {
		return nil, fmt.Errorf("inpainter is required")
	}
	if threshold < 0 {
		return nil, fmt.Errorf("threshold must not be negative: %d", threshold)
	}
	return &Orchestrator{inpainter: inpainter, threshold: threshold}, nil
}

// Mask は現在の作業画像から編集マスクを導出します。プレビュー用で、送信には使いません。
func (o *Orchestrator) Mask(original, working *image.RGBA) (*image.RGBA, error) {
	return imgutil.DeriveMask(original, working, o.threshold)
}

// Prepare は指示文とマスクを検証し、送信用の要求を組み立てます。ネットワークには出ません。
//
// ベース画像には必ず Original を使い、ストロークが入った Working は差分の導出にだけ使います。
func (o *Orchestrator) Prepare(snap Snapshot) (*Prepared, error) {
	prompt := strings.TrimSpace(snap.Instruction)
	if prompt == "" {
		return nil, domain.NewValidationError("instruction is required")
	}

	mask, err := imgutil.DeriveMask(snap.Original, snap.Working, o.threshold)
	if err != nil {
		return nil, domain.NewValidationError(fmt.Sprintf("failed to derive mask: %v", err))
	}
	masked := imgutil.CountMasked(mask)
	if masked == 0 {
		return nil, domain.NewValidationError("mask is empty: paint over the region to change")
	}

	base, err := imgutil.EncodePNG(snap.Original)
	if err != nil {
		return nil, fmt.Errorf("failed to encode base image: %w", err)
	}
	maskData, err := imgutil.EncodePNG(mask)
	if err != nil {
		return nil, fmt.Errorf("failed to encode mask: %w", err)
	}

	size := snap.Original.Bounds().Size()
	return &Prepared{
		Request: domain.InpaintRequest{
			Image:      base,
			Mask:       maskData,
			MimeType:   "image/png",
			Width:      size.X,
			Height:     size.Y,
			Prompt:     prompt,
			Credential: snap.Credential,
			Seed:       snap.Seed,
		},
		Mask:         mask,
		MaskedPixels: masked,
	}, nil
}

// Execute は準備済みの要求を 1 回だけ送信し、返ってきた画像をデコードします。
func (o *Orchestrator) Execute(ctx context.Context, p *Prepared) (*Result, error) {
	if p == nil {
		return nil, fmt.Errorf("prepared request is required")
	}
	slog.DebugContext(ctx, "インペイント要求を送信します",
		"width", p.Request.Width, "height", p.Request.Height,
		"image_bytes", len(p.Request.Image), "mask_bytes", len(p.Request.Mask),
		"masked_pixels", p.MaskedPixels)

	resp, err := o.inpainter.Inpaint(ctx, p.Request)
	if err != nil {
		return nil, classifyError(ctx, err)
	}
	if resp == nil || len(resp.Data) == 0 {
		return nil, domain.NewUpstreamError("no image data in response", nil)
	}

	img, format, err := imgutil.Decode(resp.Data)
	if err != nil {
		return nil, domain.NewDecodeError("returned image could not be decoded", err)
	}

	mimeType := resp.MimeType
	if mimeType == "" {
		mimeType = "image/" + format
	}
	return &Result{Image: img, MimeType: mimeType, UsedSeed: resp.UsedSeed}, nil
}

// Submit は Prepare と Execute を続けて実行します。
func (o *Orchestrator) Submit(ctx context.Context, snap Snapshot) (*Result, error) {
	p, err := o.Prepare(snap)
	if err != nil {
		return nil, err
	}
	return o.Execute(ctx, p)
}

// classifyError は分類されていないエラーを通信エラーとして扱います。
func classifyError(ctx context.Context, err error) error {
	if _, ok := domain.CodeOf(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return domain.NewTransportError("inpainting request timed out", err)
	case errors.Is(err, context.Canceled):
		return domain.NewTransportError("inpainting request was cancelled", err)
	default:
		return domain.NewTransportError("inpainting request failed", err)
	}
}
