package session

import "errors"

// State はセッションの状態です。
type State int

const (
	// Idle は画像が読み込まれていない状態です。
	Idle State = iota
	// Drawing はストロークを受け付け、生成を開始できる状態です。
	Drawing
	// Generating はインペイント要求が 1 件だけ送信中の状態です。
	Generating
	// Result は生成結果を表示している状態です。
	Result
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Drawing:
		return "drawing"
	case Generating:
		return "generating"
	case Result:
		return "result"
	}
	return "unknown"
}

var (
	// ErrBusy は送信中に Generate が呼ばれたことを表します。セッションには何も起きません。
	ErrBusy = errors.New("a generation is already in flight")
	// ErrInvalidState は現在の状態では許されない操作であることを表します。
	ErrInvalidState = errors.New("operation not allowed in the current session state")
	// ErrSessionReset は送信中にセッションが閉じられたか再読み込みされ、結果が破棄されたことを表します。
	ErrSessionReset = errors.New("session was reset while the request was in flight")
)
