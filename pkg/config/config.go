package config

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/image/colornames"
	"gopkg.in/yaml.v3"

	"github.com/shouni/gemini-inpaint-kit/pkg/adapters"
	"github.com/shouni/gemini-inpaint-kit/pkg/canvas"
	"github.com/shouni/gemini-inpaint-kit/pkg/imgutil"
	"github.com/shouni/gemini-inpaint-kit/pkg/storage"
)

// 利用可能なバックエンド名です。
const (
	BackendGemini = "gemini"
	BackendHTTP   = "http"
)

// maxThreshold は R+G+B の差分が取り得る最大値です。
const maxThreshold = 3 * 255

// Config はエディタとバックエンドの設定です。YAML ファイルと環境変数 (INPAINT_*) から読み込みます。
type Config struct {
	Threshold        int           `yaml:"threshold"`
	BrushRadius      float64       `yaml:"brush_radius"`
	OverlayColorSpec string        `yaml:"overlay_color"`
	Backend          string        `yaml:"backend"`
	Endpoint         string        `yaml:"endpoint"`
	Model            string        `yaml:"model"`
	APIKey           string        `yaml:"api_key"`
	Timeout          time.Duration `yaml:"timeout"`
	AllowPrivateURLs bool          `yaml:"allow_private_urls"`
	ExportDir        string        `yaml:"export_dir"`
	JPEGQuality      int           `yaml:"jpeg_quality"`
	Seed             *int64        `yaml:"seed"`
	LogLevel         string        `yaml:"log_level"`
}

// New は既定値を持つ Config を返します。
func New() *Config {
	return &Config{
		Threshold:        imgutil.DefaultThreshold,
		BrushRadius:      canvas.DefaultBrushRadius,
		OverlayColorSpec: "#FFFFFFB3",
		Backend:          BackendGemini,
		Model:            adapters.DefaultGeminiModel,
		Timeout:          2 * time.Minute,
		ExportDir:        ".",
		JPEGQuality:      storage.DefaultJPEGQuality,
		LogLevel:         "info",
	}
}

// Load は既定値に YAML ファイル (path が空なら省略) と環境変数を順に重ね、検証した結果を返します。
func Load(path string) (*Config, error) {
	cfg := New()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("INPAINT_THRESHOLD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid INPAINT_THRESHOLD: %w", err)
		}
		c.Threshold = n
	}
	if v := os.Getenv("INPAINT_BRUSH_RADIUS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid INPAINT_BRUSH_RADIUS: %w", err)
		}
		c.BrushRadius = f
	}
	if v := os.Getenv("INPAINT_OVERLAY_COLOR"); v != "" {
		c.OverlayColorSpec = v
	}
	if v := os.Getenv("INPAINT_BACKEND"); v != "" {
		c.Backend = v
	}
	if v := os.Getenv("INPAINT_ENDPOINT"); v != "" {
		c.Endpoint = v
	}
	if v := os.Getenv("INPAINT_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("INPAINT_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("INPAINT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid INPAINT_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	if v := os.Getenv("INPAINT_ALLOW_PRIVATE_URLS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid INPAINT_ALLOW_PRIVATE_URLS: %w", err)
		}
		c.AllowPrivateURLs = b
	}
	if v := os.Getenv("INPAINT_EXPORT_DIR"); v != "" {
		c.ExportDir = v
	}
	if v := os.Getenv("INPAINT_JPEG_QUALITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid INPAINT_JPEG_QUALITY: %w", err)
		}
		c.JPEGQuality = n
	}
	if v := os.Getenv("INPAINT_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid INPAINT_SEED: %w", err)
		}
		c.Seed = &n
	}
	if v := os.Getenv("INPAINT_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate は設定値の整合性を確認します。問題はまとめて返します。
func (c *Config) Validate() error {
	var errs []error
	if c.Threshold < 0 || c.Threshold >= maxThreshold {
		errs = append(errs, fmt.Errorf("threshold must be between 0 and %d", maxThreshold-1))
	}
	if c.BrushRadius < canvas.MinBrushRadius || c.BrushRadius > canvas.MaxBrushRadius {
		errs = append(errs, fmt.Errorf("brush_radius must be between %d and %d", canvas.MinBrushRadius, canvas.MaxBrushRadius))
	}
	if _, err := ParseColor(c.OverlayColorSpec); err != nil {
		errs = append(errs, fmt.Errorf("overlay_color: %w", err))
	}
	switch c.Backend {
	case BackendGemini:
	case BackendHTTP:
		if c.Endpoint == "" {
			errs = append(errs, fmt.Errorf("endpoint is required for the http backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive"))
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("jpeg_quality must be between 1 and 100"))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// OverlayColor は overlay_color を解釈した色を返します。解釈できなければ既定色です。
func (c *Config) OverlayColor() color.NRGBA {
	col, err := ParseColor(c.OverlayColorSpec)
	if err != nil {
		return canvas.DefaultOverlayColor
	}
	return col
}

// SlogLevel は log_level を slog.Level に変換します。
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return level, nil
}

// ParseColor は色名 (colornames) か #RRGGBB / #RRGGBBAA を解釈します。アルファはストレートアルファです。
func ParseColor(s string) (color.NRGBA, error) {
	spec := strings.ToLower(strings.TrimSpace(s))
	if spec == "" {
		return color.NRGBA{}, fmt.Errorf("color cannot be empty")
	}
	if c, ok := colornames.Map[spec]; ok {
		return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}, nil
	}

	hex, ok := strings.CutPrefix(spec, "#")
	if !ok || (len(hex) != 6 && len(hex) != 8) {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	val, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	if len(hex) == 6 {
		return color.NRGBA{R: uint8(val >> 16), G: uint8(val >> 8), B: uint8(val), A: 255}, nil
	}
	return color.NRGBA{R: uint8(val >> 24), G: uint8(val >> 16), B: uint8(val >> 8), A: uint8(val)}, nil
}
