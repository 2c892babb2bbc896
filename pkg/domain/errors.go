package domain

import (
	"errors"
	"fmt"
)

// ErrorCode は生成試行が失敗した理由の分類です。
type ErrorCode string

const (
	// CodeValidation はネットワークに出る前にローカルで弾かれた要求です。
	CodeValidation ErrorCode = "validation"
	// CodeTransport はバックエンドへ到達できなかった失敗です。
	CodeTransport ErrorCode = "transport"
	// CodeUpstream はバックエンドが失敗を報告したか、使える画像を返さなかった失敗です。
	CodeUpstream ErrorCode = "upstream"
	// CodeDecode は返却された画像をビットマップに復元できなかった失敗です。
	CodeDecode ErrorCode = "decode"
)

// EditError は生成試行の失敗を表します。
// いずれのコードも今回の試行に対して終端的で、自動リトライはしません。
type EditError struct {
	Code    ErrorCode
	Message string // ユーザーに表示できるメッセージ
	Err     error
}

func (e *EditError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *EditError) Unwrap() error { return e.Err }

// NewValidationError はローカル検証エラーを返します。
func NewValidationError(message string) error {
	return &EditError{Code: CodeValidation, Message: message}
}

// NewTransportError は通信エラーを返します。
func NewTransportError(message string, err error) error {
	return &EditError{Code: CodeTransport, Message: message, Err: err}
}

// NewUpstreamError はバックエンド起因のエラーを返します。
func NewUpstreamError(message string, err error) error {
	return &EditError{Code: CodeUpstream, Message: message, Err: err}
}

// NewDecodeError は画像デコードのエラーを返します。
func NewDecodeError(message string, err error) error {
	return &EditError{Code: CodeDecode, Message: message, Err: err}
}

// CodeOf は err に含まれる EditError のコードを返します。
func CodeOf(err error) (ErrorCode, bool) {
	var editErr *EditError
	if errors.As(err, &editErr) {
		return editErr.Code, true
	}
	return "", false
}

// IsCode は err が指定コードの EditError を含むかどうかを返します。
func IsCode(err error, code ErrorCode) bool {
	got, ok := CodeOf(err)
	return ok && got == code
}

// UserMessage はユーザー向けの表示文言を返します。EditError 以外はそのままの文字列です。
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var editErr *EditError
	if errors.As(err, &editErr) && editErr.Message != "" {
		return editErr.Message
	}
	return err.Error()
}
