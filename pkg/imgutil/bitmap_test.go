package imgutil

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClone(t *testing.T) {
	src := solid(2, 2, color.RGBA{1, 2, 3, 255})
	dst := Clone(src)

	require.True(t, Equal(src, dst))
	dst.SetRGBA(0, 0, color.RGBA{9, 9, 9, 255})
	assert.False(t, Equal(src, dst), "複製は元のバッファを共有してはいけないのだ")
	assert.Nil(t, Clone(nil))
}

func TestCopyInto(t *testing.T) {
	dst := solid(2, 2, color.RGBA{255, 255, 255, 255})
	src := solid(2, 2, color.RGBA{0, 0, 255, 255})

	require.NoError(t, CopyInto(dst, src))
	assert.True(t, Equal(dst, src))
	assert.Error(t, CopyInto(dst, solid(1, 2, color.RGBA{})))
}

func TestToRGBA(t *testing.T) {
	src := image.NewNRGBA(image.Rect(5, 5, 8, 7))
	src.SetNRGBA(5, 5, color.NRGBA{10, 20, 30, 255})

	got := ToRGBA(src)
	assert.Equal(t, image.Rect(0, 0, 3, 2), got.Bounds())
	assert.Equal(t, color.RGBA{10, 20, 30, 255}, got.RGBAAt(0, 0))
}

func TestEncodeDecode(t *testing.T) {
	src := solid(3, 2, color.RGBA{255, 0, 0, 255})
	data, err := EncodePNG(src)
	require.NoError(t, err)

	got, format, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.True(t, Equal(src, got))

	_, _, err = Decode([]byte("this is not an image"))
	assert.Error(t, err)
	_, _, err = Decode(nil)
	assert.Error(t, err)
}

func TestDataURL(t *testing.T) {
	data, err := EncodePNG(solid(1, 1, color.RGBA{0, 0, 0, 255}))
	require.NoError(t, err)

	url := EncodeDataURL(data)
	assert.Contains(t, url, "data:image/png;base64,")

	got, mimeType, err := DecodeDataURL(url)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)
	assert.Equal(t, data, got)

	for _, bad := range []string{"https://example.com/a.png", "data:image/png;base64", "data:text/plain,hello", "data:image/png;base64,@@@"} {
		_, _, err := DecodeDataURL(bad)
		assert.Error(t, err, bad)
	}
}
