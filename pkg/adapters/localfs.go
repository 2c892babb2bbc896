package adapters

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/shouni/go-remote-io/pkg/remoteio"
)

// LocalReader はローカルファイルシステムを remoteio.InputReader として扱います。
// "file://" 接頭辞は取り除かれます。
type LocalReader struct{}

var _ remoteio.InputReader = LocalReader{}

func (LocalReader) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.Open(localPath(uri))
}

// List は uri 配下の通常ファイルを辞書順に fn へ渡します。
func (LocalReader) List(ctx context.Context, uri string, fn func(string) error) error {
	return filepath.WalkDir(localPath(uri), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		return fn(path)
	})
}

func localPath(uri string) string {
	return filepath.FromSlash(strings.TrimPrefix(uri, "file://"))
}
