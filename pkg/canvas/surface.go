// Package canvas は作業ビットマップにブラシの筆跡を描き込むストローク入力面です。
package canvas

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"golang.org/x/mobile/event/mouse"

	"github.com/shouni/gemini-inpaint-kit/pkg/imgutil"
)

const (
	MinBrushRadius     = 5
	MaxBrushRadius     = 100
	DefaultBrushRadius = 20
)

// DefaultOverlayColor は 70% 不透明の白です。最終的な画素ではなく差分の目印として使われます。
var DefaultOverlayColor = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xb3}

// Surface はポインタ操作を円形ブラシの連続として作業ビットマップに直接合成します。
// 個々のストロークは保持せず、残るのはビットマップの画素だけです。
type Surface struct {
	target  *image.RGBA
	dc      *gg.Context
	radius  float64
	drawing bool
	lastX   float64
	lastY   float64
}

// New は target に描画する Surface を生成します。target は呼び出し側が所有する作業ビットマップです。
func New(target *image.RGBA, overlay color.Color, radius float64) (*Surface, error) {
	if target == nil {
		return nil, fmt.Errorf("target bitmap is required")
	}
	if target.Bounds().Min != (image.Point{}) {
		return nil, fmt.Errorf("target bitmap must be anchored at the origin, got %v", target.Bounds())
	}
	if overlay == nil {
		overlay = DefaultOverlayColor
	}

	dc := gg.NewContextForRGBA(target)
	dc.SetColor(overlay)
	return &Surface{
		target: target,
		dc:     dc,
		radius: ClampRadius(radius),
	}, nil
}

// ClampRadius はブラシ半径を許容範囲 (5〜100px) に丸めます。
func ClampRadius(r float64) float64 {
	return math.Max(MinBrushRadius, math.Min(MaxBrushRadius, r))
}

// SetBrushRadius は以降の筆跡の半径を変更し、丸めた後の値を返します。
func (s *Surface) SetBrushRadius(r float64) float64 {
	s.radius = ClampRadius(r)
	return s.radius
}

// BrushRadius は現在のブラシ半径を返します。
func (s *Surface) BrushRadius() float64 { return s.radius }

// Drawing はドラッグ中かどうかを返します。
func (s *Surface) Drawing() bool { return s.drawing }

// PointerDown はストロークを開始し、押下位置に 1 つ目の円を描きます。
// キャンバス外での押下は無視され、false を返します。
func (s *Surface) PointerDown(x, y float64) bool {
	if !s.contains(x, y) {
		return false
	}
	s.drawing = true
	s.stamp(x, y)
	s.lastX, s.lastY = x, y
	return true
}

// PointerMove はドラッグ中であれば前回位置から現在位置までを円で埋めます。
// キャンバスの外に出た時点でストロークは終了します。
func (s *Surface) PointerMove(x, y float64) bool {
	if !s.drawing {
		return false
	}
	if !s.contains(x, y) {
		s.drawing = false
		return false
	}

	// 速いドラッグでも隙間が出ないよう、半径以下の間隔で補間する
	dist := math.Hypot(x-s.lastX, y-s.lastY)
	steps := int(math.Ceil(dist / s.radius))
	if steps < 1 {
		steps = 1
	}
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps)
		s.stamp(s.lastX+(x-s.lastX)*t, s.lastY+(y-s.lastY)*t)
	}
	s.lastX, s.lastY = x, y
	return true
}

// PointerUp はストロークを終了します。
func (s *Surface) PointerUp() {
	s.drawing = false
}

// HandleMouse は左ボタンの mouse.Event を PointerDown/Move/Up に振り分けます。
func (s *Surface) HandleMouse(e mouse.Event) bool {
	x, y := float64(e.X), float64(e.Y)
	switch e.Direction {
	case mouse.DirPress:
		if e.Button != mouse.ButtonLeft {
			return false
		}
		return s.PointerDown(x, y)
	case mouse.DirRelease:
		if e.Button != mouse.ButtonLeft || !s.drawing {
			return false
		}
		s.PointerUp()
		return true
	case mouse.DirNone:
		return s.PointerMove(x, y)
	}
	return false
}

// Reset は作業ビットマップを original と画素単位で一致させます。何度呼んでも結果は同じです。
func (s *Surface) Reset(original *image.RGBA) error {
	s.drawing = false
	return imgutil.CopyInto(s.target, original)
}

func (s *Surface) stamp(x, y float64) {
	s.dc.DrawCircle(x, y, s.radius)
	s.dc.Fill()
}

func (s *Surface) contains(x, y float64) bool {
	b := s.target.Bounds()
	return x >= float64(b.Min.X) && y >= float64(b.Min.Y) && x < float64(b.Max.X) && y < float64(b.Max.Y)
}
