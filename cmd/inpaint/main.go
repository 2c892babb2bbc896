// Command inpaint は画像を読み込み、ストロークのスクリプトを再生してインペイントを実行し、結果を書き出します。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/shouni/go-http-kit/pkg/httpkit"

	"github.com/shouni/gemini-inpaint-kit/pkg/adapters"
	"github.com/shouni/gemini-inpaint-kit/pkg/config"
	"github.com/shouni/gemini-inpaint-kit/pkg/domain"
	"github.com/shouni/gemini-inpaint-kit/pkg/generator"
	"github.com/shouni/gemini-inpaint-kit/pkg/session"
	"github.com/shouni/gemini-inpaint-kit/pkg/storage"
)

var _ Canvas = (*session.Session)(nil)

type flags struct {
	configPath string
	image      string
	prompt     string
	strokes    string
	out        string
	maskOut    string
	backend    string
	radius     float64
	debug      bool
}

func parseFlags(args []string, stderr io.Writer) (*flags, error) {
	f := &flags{}
	fs := flag.NewFlagSet("inpaint", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.configPath, "config", "", "YAML config file")
	fs.StringVar(&f.image, "image", "", "base image (path, file://, http(s):// or data: URL)")
	fs.StringVar(&f.prompt, "prompt", "", "instruction text (overrides the first pass of the script)")
	fs.StringVar(&f.strokes, "strokes", "", "YAML stroke script")
	fs.StringVar(&f.out, "out", "result.png", "output file (.png or .jpg)")
	fs.StringVar(&f.maskOut, "mask-out", "", "write the submitted mask of the last pass to this file")
	fs.StringVar(&f.backend, "backend", "", "backend override: gemini or http")
	fs.Float64Var(&f.radius, "radius", 0, "initial brush radius override")
	fs.BoolVar(&f.debug, "debug", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if f.image == "" {
		return nil, fmt.Errorf("-image is required")
	}
	if f.strokes == "" {
		return nil, fmt.Errorf("-strokes is required")
	}
	return f, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		slog.Error("inpaint failed", "error", domain.UserMessage(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	f, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	if f.backend != "" {
		cfg.Backend = f.backend
	}
	if f.radius > 0 {
		cfg.BrushRadius = f.radius
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := cfg.SlogLevel()
	if f.debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))

	script, err := LoadScript(f.strokes)
	if err != nil {
		return err
	}
	if f.prompt != "" {
		script.Passes[0].Prompt = f.prompt
	}

	httpClient := newHTTPClient(cfg)
	inpainter, err := newInpainter(cfg, httpClient)
	if err != nil {
		return err
	}
	orch, err := generator.NewOrchestrator(inpainter, cfg.Threshold)
	if err != nil {
		return err
	}
	exporter := storage.NewExporter(cfg.ExportDir, cfg.JPEGQuality)
	sess, err := session.New(orch,
		session.WithTimeout(cfg.Timeout),
		session.WithOverlayColor(cfg.OverlayColor()),
		session.WithBrushRadius(cfg.BrushRadius),
		session.WithExporter(exporter),
		session.WithCredentials(session.StaticCredential(cfg.APIKey)),
		session.WithSeed(cfg.Seed),
		session.WithBackendInfo(cfg.Backend, cfg.Model),
	)
	if err != nil {
		return err
	}
	defer sess.Close()

	src, err := adapters.NewImageSource(adapters.LocalReader{}, httpClient, cfg.AllowPrivateURLs)
	if err != nil {
		return err
	}
	img, err := src.Load(ctx, f.image)
	if err != nil {
		return err
	}
	if err := sess.Load(img); err != nil {
		return err
	}

	for i, pass := range script.Passes {
		if i > 0 {
			if err := sess.ContinueEditing(); err != nil {
				return err
			}
		}
		if err := pass.Replay(sess); err != nil {
			return fmt.Errorf("pass %d: %w", i+1, err)
		}
		sess.SetInstruction(pass.Prompt)

		if f.maskOut != "" && i == len(script.Passes)-1 {
			mask, err := sess.Mask()
			if err != nil {
				return err
			}
			if _, err := exporter.Save(f.maskOut, mask, nil); err != nil {
				return err
			}
		}

		slog.Info("生成を開始します", "pass", i+1, "of", len(script.Passes))
		if _, err := sess.Generate(ctx); err != nil {
			return fmt.Errorf("pass %d: %w", i+1, err)
		}
	}

	path, err := sess.Download(f.out)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, path)
	return nil
}

// newHTTPClient は 1 回の生成につき 1 回だけ送信するクライアントを作ります。
// allow_private_urls はライブラリ側のネットワーク検証にもそのまま渡します。
func newHTTPClient(cfg *config.Config) *httpkit.Client {
	return httpkit.New(cfg.Timeout,
		httpkit.WithMaxRetries(0),
		httpkit.WithSkipNetworkValidation(cfg.AllowPrivateURLs),
	)
}

func newInpainter(cfg *config.Config, httpClient adapters.HTTPClient) (generator.Inpainter, error) {
	switch cfg.Backend {
	case config.BackendHTTP:
		return adapters.NewHTTPInpainter(httpClient, cfg.Endpoint, cfg.AllowPrivateURLs)
	default:
		return adapters.NewGeminiInpainter(adapters.NewGenAIModel(cfg.APIKey, nil), cfg.Model)
	}
}
