package domain

// InpaintRequest は 1 回の生成試行でバックエンドへ送る要求です。
// Image と Mask は同じ寸法の PNG バイナリで、Mask の白が「編集」、黒が「保持」を表します。
type InpaintRequest struct {
	Image      []byte
	Mask       []byte
	MimeType   string
	Width      int
	Height     int
	Prompt     string
	Credential string // 検証もキャッシュもしない不透明な API キー
	Seed       *int64 // nil でランダム
}

// ImageResponse は生成された画像データとそのメタデータです。
type ImageResponse struct {
	Data     []byte
	MimeType string
	UsedSeed int64 // 戻り値は情報欠落を防ぐため int64
}
