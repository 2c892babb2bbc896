package session

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/shouni/gemini-inpaint-kit/pkg/canvas"
	"github.com/shouni/gemini-inpaint-kit/pkg/imgutil"
	"github.com/shouni/gemini-inpaint-kit/pkg/storage"
)

// Result は表示中の生成結果の複製を返します。Result 状態でなければ ok は false です。
func (s *Session) Result() (img *image.RGBA, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Result || s.result == nil {
		return nil, false
	}
	return imgutil.Clone(s.result.Image), true
}

// Download は表示中の結果をファイルに書き出し、書き出したパスを返します。状態は変わりません。
func (s *Session) Download(path string) (string, error) {
	if s.opts.exporter == nil {
		return "", fmt.Errorf("exporter is not configured")
	}

	s.mu.Lock()
	if s.state != Result || s.result == nil {
		s.mu.Unlock()
		return "", ErrInvalidState
	}
	// 結果のビットマップは以後変更されないので、ロック外で書き出してよい
	res := s.result
	meta := &storage.Metadata{
		Instruction: s.resultInstruction,
		Backend:     s.opts.backend,
		Model:       s.opts.model,
		Iteration:   s.iteration,
	}
	s.mu.Unlock()

	if s.opts.seed != nil {
		seed := res.UsedSeed
		meta.Seed = &seed
	}

	out, err := s.opts.exporter.Save(path, res.Image, meta)
	if err != nil {
		return "", err
	}
	slog.Info("生成結果を書き出しました", "path", out)
	return out, nil
}

// ContinueEditing は結果を新しい Original として受け入れ、ストロークの無い Drawing に戻ります。
// 直前の結果はここで破棄されます。指示文は引き継ぎます。
func (s *Session) ContinueEditing() error {
	s.mu.Lock()
	if s.state != Result || s.result == nil {
		s.mu.Unlock()
		return ErrInvalidState
	}
	original := imgutil.ToRGBA(s.result.Image)
	working := imgutil.Clone(original)
	surface, err := canvas.New(working, s.opts.overlay, s.brushRadius)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.original, s.working, s.surface = original, working, surface
	s.result = nil
	tr := s.setStateLocked(Drawing)
	s.mu.Unlock()

	s.emit(tr)
	return nil
}
