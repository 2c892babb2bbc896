package session

import (
	"image"
	"image/color"
	"time"

	"github.com/shouni/gemini-inpaint-kit/pkg/canvas"
	"github.com/shouni/gemini-inpaint-kit/pkg/storage"
)

// Exporter は Download の書き出し先です。storage.Exporter がこれを満たします。
type Exporter interface {
	Save(path string, img image.Image, meta *storage.Metadata) (string, error)
}

// StateListener は状態遷移のたびに呼ばれます。セッションのロック外で呼ばれるため、
// リスナー内からセッションを操作しても構いません。
type StateListener func(from, to State)

type options struct {
	timeout     time.Duration
	overlay     color.Color
	brushRadius float64
	exporter    Exporter
	credentials CredentialSource
	seed        *int64
	backend     string
	model       string
	listeners   []StateListener
}

func defaultOptions() options {
	return options{
		overlay:     canvas.DefaultOverlayColor,
		brushRadius: canvas.DefaultBrushRadius,
	}
}

// Option はセッションの設定を変更します。
type Option func(*options)

// WithTimeout は 1 回の生成に許す時間を設定します。0 以下なら呼び出し側の ctx に任せます。
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithOverlayColor はブラシの描画色を設定します。
func WithOverlayColor(c color.Color) Option {
	return func(o *options) {
		if c != nil {
			o.overlay = c
		}
	}
}

// WithBrushRadius は初期のブラシ半径を設定します (5〜100px に丸められます)。
func WithBrushRadius(r float64) Option {
	return func(o *options) { o.brushRadius = canvas.ClampRadius(r) }
}

// WithExporter は Download の書き出し先を設定します。
func WithExporter(e Exporter) Option {
	return func(o *options) { o.exporter = e }
}

// WithCredentials は送信時の API キーの供給元を設定します。
func WithCredentials(c CredentialSource) Option {
	return func(o *options) { o.credentials = c }
}

// WithSeed は毎回の要求に付けるシードを設定します。
func WithSeed(seed *int64) Option {
	return func(o *options) { o.seed = seed }
}

// WithBackendInfo はエクスポートのメタデータに記録するバックエンド名とモデル名を設定します。
func WithBackendInfo(backend, model string) Option {
	return func(o *options) { o.backend, o.model = backend, model }
}

// WithStateListener は状態遷移のリスナーを追加します。
func WithStateListener(l StateListener) Option {
	return func(o *options) {
		if l != nil {
			o.listeners = append(o.listeners, l)
		}
	}
}
