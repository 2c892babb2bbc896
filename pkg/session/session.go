// Package session は 1 枚の画像に対する編集セッションの状態機械です。
// Idle → Drawing → Generating → Result → Drawing の遷移と、送信中は 1 件だけという制約を守ります。
package session

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"golang.org/x/mobile/event/mouse"

	"github.com/shouni/gemini-inpaint-kit/pkg/canvas"
	"github.com/shouni/gemini-inpaint-kit/pkg/domain"
	"github.com/shouni/gemini-inpaint-kit/pkg/generator"
	"github.com/shouni/gemini-inpaint-kit/pkg/imgutil"
)

// Generator はセッションが利用するオーケストレーターの契約です。generator.Orchestrator がこれを満たします。
type Generator interface {
	Mask(original, working *image.RGBA) (*image.RGBA, error)
	Prepare(snap generator.Snapshot) (*generator.Prepared, error)
	Execute(ctx context.Context, p *generator.Prepared) (*generator.Result, error)
}

var _ Generator = (*generator.Orchestrator)(nil)

type transition struct {
	from, to State
}

// Session は Original / Working の 2 枚のビットマップと、指示文・状態・直近の結果を保持します。
// メソッドは複数のゴルーチンから呼び出せます。
type Session struct {
	gen  Generator
	opts options

	mu          sync.Mutex
	state       State
	epoch       uint64
	original    *image.RGBA
	working     *image.RGBA
	surface     *canvas.Surface
	brushRadius float64
	instruction string

	result            *generator.Result
	resultInstruction string
	iteration         int
}

// New はセッションを Idle 状態で生成します。
func New(gen Generator, opts ...Option) (*Session, error) {
	if gen == nil {
		return nil, fmt.Errorf("generator is required")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Session{
		gen:         gen,
		opts:        o,
		state:       Idle,
		brushRadius: o.brushRadius,
	}, nil
}

// Load は img を新しい Original として読み込み、Drawing に遷移します。
// 以前の画像・ストローク・結果・指示文は破棄され、送信中の要求があればその結果も捨てられます。
func (s *Session) Load(img image.Image) error {
	if img == nil {
		return fmt.Errorf("image is required")
	}
	original := imgutil.ToRGBA(img)
	if original.Bounds().Empty() {
		return fmt.Errorf("image has no pixels")
	}
	working := imgutil.Clone(original)

	s.mu.Lock()
	surface, err := canvas.New(working, s.opts.overlay, s.brushRadius)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.epoch++
	s.original, s.working, s.surface = original, working, surface
	s.instruction = ""
	s.result, s.resultInstruction = nil, ""
	s.iteration = 0
	tr := s.setStateLocked(Drawing)
	s.mu.Unlock()

	slog.Info("画像を読み込みました", "width", original.Bounds().Dx(), "height", original.Bounds().Dy())
	s.emit(tr)
	return nil
}

// State は現在の状態を返します。
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetInstruction は次の生成に使う指示文を設定します。
func (s *Session) SetInstruction(text string) {
	s.mu.Lock()
	s.instruction = text
	s.mu.Unlock()
}

// Instruction は現在の指示文を返します。
func (s *Session) Instruction() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.instruction
}

// SetBrushRadius はブラシ半径を変更し、丸めた後の値を返します。
func (s *Session) SetBrushRadius(r float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.brushRadius = canvas.ClampRadius(r)
	if s.surface != nil {
		s.surface.SetBrushRadius(s.brushRadius)
	}
	return s.brushRadius
}

// PointerDown はストロークを開始します。Drawing 以外では何もせず false を返します。
func (s *Session) PointerDown(x, y float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Drawing {
		return false
	}
	return s.surface.PointerDown(x, y)
}

// PointerMove はドラッグ中のストロークを伸ばします。Drawing 以外では無視されます。
func (s *Session) PointerMove(x, y float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Drawing {
		return false
	}
	return s.surface.PointerMove(x, y)
}

// PointerUp はストロークを終了します。
func (s *Session) PointerUp() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Drawing {
		return
	}
	s.surface.PointerUp()
}

// HandleMouse は mouse.Event を描画面に渡します。Drawing 以外では無視されます。
func (s *Session) HandleMouse(e mouse.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Drawing {
		return false
	}
	return s.surface.HandleMouse(e)
}

// ClearMask はすべてのストロークを消し、Working を Original に戻します。
func (s *Session) ClearMask() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Drawing {
		return ErrInvalidState
	}
	return s.surface.Reset(s.original)
}

// Mask は現在のストロークから導出したマスクを返します。表示確認用で、送信時には改めて導出されます。
func (s *Session) Mask() (*image.RGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.original == nil {
		return nil, ErrInvalidState
	}
	return s.gen.Mask(s.original, s.working)
}

// Original は Original ビットマップの複製を返します。Idle では nil です。
func (s *Session) Original() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.original == nil {
		return nil
	}
	return imgutil.Clone(s.original)
}

// Working は Working ビットマップの複製を返します。Idle では nil です。
func (s *Session) Working() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.working == nil {
		return nil
	}
	return imgutil.Clone(s.working)
}

// Generate は押下時点のストロークからマスクを 1 回だけ導出し、要求を 1 件送信して応答を待ちます。
//
// 検証エラーでは Drawing のまま外部には出ません。送信中に呼ばれた場合は ErrBusy を返すだけです。
// 失敗時は Drawing に戻り、Working は送信前のまま残ります。
func (s *Session) Generate(ctx context.Context) (*generator.Result, error) {
	if err := s.checkCanGenerate(); err != nil {
		return nil, err
	}

	credential, err := s.credential(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if err := s.checkCanGenerateLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	prepared, err := s.gen.Prepare(generator.Snapshot{
		Original:    s.original,
		Working:     s.working,
		Instruction: s.instruction,
		Credential:  credential,
		Seed:        s.opts.seed,
	})
	if err != nil {
		s.mu.Unlock()
		slog.WarnContext(ctx, "生成を開始できません", "code", codeOf(err), "error", err)
		return nil, err
	}
	epoch := s.epoch
	instruction := prepared.Request.Prompt
	s.surface.PointerUp()
	tr := s.setStateLocked(Generating)
	s.mu.Unlock()
	s.emit(tr)

	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if s.opts.timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, s.opts.timeout)
	}
	res, err := s.gen.Execute(callCtx, prepared)
	cancel()

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		slog.InfoContext(ctx, "セッションが切り替わったため生成結果を破棄しました")
		return nil, ErrSessionReset
	}
	if err != nil {
		tr = s.setStateLocked(Drawing)
		s.mu.Unlock()
		slog.WarnContext(ctx, "生成に失敗しました", "code", codeOf(err), "error", err)
		s.emit(tr)
		return nil, err
	}
	s.result = res
	s.resultInstruction = instruction
	s.iteration++
	tr = s.setStateLocked(Result)
	s.mu.Unlock()
	s.emit(tr)

	out := *res
	out.Image = imgutil.Clone(res.Image)
	return &out, nil
}

// Close はセッションを破棄して Idle に戻します。送信中の要求の結果は捨てられます。
func (s *Session) Close() {
	s.mu.Lock()
	s.epoch++
	s.original, s.working, s.surface = nil, nil, nil
	s.instruction = ""
	s.result, s.resultInstruction = nil, ""
	s.iteration = 0
	tr := s.setStateLocked(Idle)
	s.mu.Unlock()
	s.emit(tr)
}

func (s *Session) checkCanGenerate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkCanGenerateLocked()
}

func (s *Session) checkCanGenerateLocked() error {
	switch s.state {
	case Drawing:
		return nil
	case Generating:
		return ErrBusy
	default:
		return ErrInvalidState
	}
}

func (s *Session) credential(ctx context.Context) (string, error) {
	if s.opts.credentials == nil {
		return "", nil
	}
	key, err := s.opts.credentials.Credential(ctx)
	if err != nil {
		return "", domain.NewValidationError(fmt.Sprintf("credential is not available: %v", err))
	}
	return key, nil
}

// setStateLocked は状態を変更し、通知すべき遷移を返します。呼び出し側は mu を保持している必要があります。
func (s *Session) setStateLocked(to State) []transition {
	from := s.state
	s.state = to
	if from == to {
		return nil
	}
	return []transition{{from: from, to: to}}
}

func (s *Session) emit(trs []transition) {
	for _, tr := range trs {
		slog.Info("セッション状態が遷移しました", "from", tr.from.String(), "to", tr.to.String())
		for _, l := range s.opts.listeners {
			l(tr.from, tr.to)
		}
	}
}

func codeOf(err error) string {
	if code, ok := domain.CodeOf(err); ok {
		return string(code)
	}
	return "unknown"
}
