package imgutil

import (
	"fmt"
	"image"
)

// DefaultThreshold は R+G+B の差分合計に対する既定のしきい値です。
const DefaultThreshold = 20

// DeriveMask は元画像と作業画像をピクセル単位で比較し、2 値の編集マスクを返します。
//
// |Rw-Ro| + |Gw-Go| + |Bw-Bo| が threshold を超えるピクセルは不透明な白 (編集)、
// それ以外は不透明な黒 (保持) になります。半透明の画素は乗算済みアルファを戻した色で比較し、
// アルファ自体の差は見ません。
// 入力ビットマップには一切書き込みません。
func DeriveMask(original, working *image.RGBA, threshold int) (*image.RGBA, error) {
	if original == nil || working == nil {
		return nil, fmt.Errorf("original and working bitmaps are required")
	}
	ob, wb := original.Bounds(), working.Bounds()
	if ob.Size() != wb.Size() {
		return nil, fmt.Errorf("bitmap size mismatch: original %v, working %v", ob.Size(), wb.Size())
	}

	w, h := ob.Dx(), ob.Dy()
	mask := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		oi := original.PixOffset(ob.Min.X, ob.Min.Y+y)
		wi := working.PixOffset(wb.Min.X, wb.Min.Y+y)
		mi := mask.PixOffset(0, y)
		for x := 0; x < w; x++ {
			oa, wa := original.Pix[oi+3], working.Pix[wi+3]
			d := absDiff(straight(working.Pix[wi], wa), straight(original.Pix[oi], oa)) +
				absDiff(straight(working.Pix[wi+1], wa), straight(original.Pix[oi+1], oa)) +
				absDiff(straight(working.Pix[wi+2], wa), straight(original.Pix[oi+2], oa))
			var v uint8
			if d > threshold {
				v = 0xff
			}
			mask.Pix[mi] = v
			mask.Pix[mi+1] = v
			mask.Pix[mi+2] = v
			mask.Pix[mi+3] = 0xff
			oi += 4
			wi += 4
			mi += 4
		}
	}
	return mask, nil
}

// IsEmptyMask は編集ピクセルが 1 つも無い (全面黒の) マスクかどうかを返します。
func IsEmptyMask(mask *image.RGBA) bool {
	return CountMasked(mask) == 0
}

// CountMasked はマスク内の編集ピクセル数を返します。
func CountMasked(mask *image.RGBA) int {
	if mask == nil {
		return 0
	}
	b := mask.Bounds()
	n := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		i := mask.PixOffset(b.Min.X, y)
		for x := b.Min.X; x < b.Max.X; x++ {
			if mask.Pix[i] != 0 {
				n++
			}
			i += 4
		}
	}
	return n
}

// straight は乗算済みアルファのチャンネル値をストレートアルファの値に戻します。
func straight(c, a uint8) uint8 {
	if a == 0xff || a == 0 {
		return c
	}
	v := (int(c)*0xff + int(a)/2) / int(a)
	if v > 0xff {
		v = 0xff
	}
	return uint8(v)
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
