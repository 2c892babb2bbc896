package imgutil

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"net/http"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ToRGBA は任意の image.Image を原点 (0,0) 基準の新しい *image.RGBA に変換します。
func ToRGBA(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// Clone は src と独立したピクセルバッファを持つ複製を返します。
func Clone(src *image.RGBA) *image.RGBA {
	if src == nil {
		return nil
	}
	pix := make([]uint8, len(src.Pix))
	copy(pix, src.Pix)
	return &image.RGBA{Pix: pix, Stride: src.Stride, Rect: src.Rect}
}

// CopyInto は src のピクセルを dst へそのまま書き戻します。寸法が異なる場合はエラーです。
func CopyInto(dst, src *image.RGBA) error {
	if dst.Bounds().Size() != src.Bounds().Size() {
		return fmt.Errorf("bitmap size mismatch: %v != %v", dst.Bounds().Size(), src.Bounds().Size())
	}
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	return nil
}

// Equal は 2 つのビットマップが寸法とピクセルの両方で一致するかを返します。
func Equal(a, b *image.RGBA) bool {
	if a == nil || b == nil {
		return a == b
	}
	ab, bb := a.Bounds(), b.Bounds()
	if ab.Size() != bb.Size() {
		return false
	}
	rowLen := ab.Dx() * 4
	for y := 0; y < ab.Dy(); y++ {
		ai := a.PixOffset(ab.Min.X, ab.Min.Y+y)
		bi := b.PixOffset(bb.Min.X, bb.Min.Y+y)
		if !bytes.Equal(a.Pix[ai:ai+rowLen], b.Pix[bi:bi+rowLen]) {
			return false
		}
	}
	return true
}

// EncodePNG は画像を PNG バイナリにエンコードします。
func EncodePNG(img image.Image) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode は PNG, JPEG, GIF, WebP のバイナリを *image.RGBA に復元し、フォーマット名も返します。
func Decode(data []byte) (*image.RGBA, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("empty image data")
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	return ToRGBA(img), format, nil
}

// EncodeDataURL はバイナリを data URL (base64) に変換します。
func EncodeDataURL(data []byte) string {
	return "data:" + http.DetectContentType(data) + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL は data URL を分解し、ペイロードと MIME タイプを返します。
func DecodeDataURL(dataURL string) ([]byte, string, error) {
	if !strings.HasPrefix(dataURL, "data:") {
		return nil, "", fmt.Errorf("not a data URL")
	}
	header, payload, ok := strings.Cut(strings.TrimPrefix(dataURL, "data:"), ",")
	if !ok {
		return nil, "", fmt.Errorf("invalid data URL")
	}
	mimeType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return nil, "", fmt.Errorf("only base64 data URLs are supported")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode base64: %w", err)
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return data, mimeType, nil
}
