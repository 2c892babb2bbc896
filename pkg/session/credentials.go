package session

import "context"

// CredentialSource は送信時に API キーを供給する設定側の協調者です。
// セッションはキーの検証、キャッシュ、ローテーションを行いません。
type CredentialSource interface {
	Credential(ctx context.Context) (string, error)
}

// StaticCredential は固定の API キーを返す CredentialSource です。
type StaticCredential string

func (c StaticCredential) Credential(context.Context) (string, error) {
	return string(c), nil
}

// CredentialFunc は関数を CredentialSource として使うためのアダプターです。
type CredentialFunc func(ctx context.Context) (string, error)

func (f CredentialFunc) Credential(ctx context.Context) (string, error) {
	return f(ctx)
}
