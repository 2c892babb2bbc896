package imgutil

import (
	"bytes"
	"image"
	"image/jpeg"
)

// EncodeJPEG は画像を指定品質の JPEG にエンコードします。
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
