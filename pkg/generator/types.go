package generator

import (
	"image"

	"github.com/shouni/gemini-inpaint-kit/pkg/domain"
)

// Snapshot は生成ボタンが押された時点のセッション内容です。
type Snapshot struct {
	Original    *image.RGBA
	Working     *image.RGBA
	Instruction string
	Credential  string
	Seed        *int64
}

// Prepared は検証とエンコードを終え、送信するだけの状態になった要求です。
type Prepared struct {
	Request      domain.InpaintRequest
	Mask         *image.RGBA
	MaskedPixels int
}

// Result はデコード済みの生成結果です。
type Result struct {
	Image    *image.RGBA
	MimeType string
	UsedSeed int64
}
