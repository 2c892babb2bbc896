package storage

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shouni/gemini-inpaint-kit/pkg/imgutil"
)

// MetadataVersion は書き出すサイドカーの形式バージョンです。
const MetadataVersion = "1.0"

// DefaultJPEGQuality は .jpg 書き出し時の既定品質です。
const DefaultJPEGQuality = 90

// Metadata は書き出した画像に添えるサイドカー (YAML) の内容です。
type Metadata struct {
	Version     string    `yaml:"version"`
	Timestamp   time.Time `yaml:"timestamp"`
	Instruction string    `yaml:"instruction"`
	Backend     string    `yaml:"backend,omitempty"`
	Model       string    `yaml:"model,omitempty"`
	Seed        *int64    `yaml:"seed,omitempty"`
	Width       int       `yaml:"width"`
	Height      int       `yaml:"height"`
	Iteration   int       `yaml:"iteration"`
}

// Exporter は結果画像をローカルファイルとして書き出します。ネットワークは使いません。
type Exporter struct {
	dir         string
	jpegQuality int
}

// NewExporter は Exporter を生成します。dir は相対パスの基準ディレクトリです。
func NewExporter(dir string, jpegQuality int) *Exporter {
	if dir == "" {
		dir = "."
	}
	if jpegQuality <= 0 || jpegQuality > 100 {
		jpegQuality = DefaultJPEGQuality
	}
	return &Exporter{dir: dir, jpegQuality: jpegQuality}
}

// Save は拡張子に応じて PNG か JPEG で画像を書き出し、書き出したパスを返します。
// 拡張子が無い場合は .png を付けます。meta が nil でなければ "<path>.yaml" にサイドカーも書き出します。
func (e *Exporter) Save(path string, img image.Image, meta *Metadata) (string, error) {
	if img == nil {
		return "", fmt.Errorf("image is required")
	}
	if path == "" {
		return "", fmt.Errorf("path is required")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(e.dir, path)
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		data, err = imgutil.EncodeJPEG(img, e.jpegQuality)
	case ".png":
		data, err = imgutil.EncodePNG(img)
	case "":
		path += ".png"
		data, err = imgutil.EncodePNG(img)
	default:
		return "", fmt.Errorf("unsupported export format: %s", filepath.Ext(path))
	}
	if err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}

	if meta != nil {
		b := img.Bounds()
		if meta.Width == 0 && meta.Height == 0 {
			meta.Width, meta.Height = b.Dx(), b.Dy()
		}
		if err := SaveMetadata(path+".yaml", meta); err != nil {
			return path, err
		}
	}
	return path, nil
}

// SaveMetadata はメタデータを YAML で保存します。Version と Timestamp は未設定なら補います。
func SaveMetadata(path string, meta *Metadata) error {
	if meta.Version == "" {
		meta.Version = MetadataVersion
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}

	data, err := yaml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}
	return nil
}

// LoadMetadata は SaveMetadata で書き出したメタデータを読み込みます。
func LoadMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var meta Metadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return &meta, nil
}
