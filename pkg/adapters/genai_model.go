package adapters

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"

	"github.com/shouni/gemini-inpaint-kit/pkg/utils"
)

// GenAIModel は genai SDK を直接呼び出す GenerativeModel 実装です。
// API キーは呼び出しごとにコンテキストから受け取り、キーごとにクライアントを再利用します。
type GenAIModel struct {
	apiKey     string
	httpClient *http.Client

	mu      sync.Mutex
	clients map[string]*genai.Client
}

var _ GenerativeModel = (*GenAIModel)(nil)

// NewGenAIModel は GenAIModel を生成します。apiKey はコンテキストにキーが無いときの既定値です。
func NewGenAIModel(apiKey string, httpClient *http.Client) *GenAIModel {
	return &GenAIModel{
		apiKey:     apiKey,
		httpClient: httpClient,
		clients:    make(map[string]*genai.Client),
	}
}

// GenerateWithParts はパーツを 1 つのユーザーコンテンツとして送り、テキストと画像の両方を要求します。
func (m *GenAIModel) GenerateWithParts(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error) {
	key := CredentialFrom(ctx)
	if key == "" {
		key = m.apiKey
	}
	if key == "" {
		return nil, fmt.Errorf("credential is required")
	}

	client, err := m.client(ctx, key)
	if err != nil {
		return nil, err
	}

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
		Seed:               utils.SeedToPtrInt32(opts.Seed),
	}
	if opts.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(opts.SystemPrompt, genai.RoleUser)
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	resp, err := client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, err
	}
	return &gemini.Response{RawResponse: resp}, nil
}

func (m *GenAIModel) client(ctx context.Context, key string) (*genai.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.clients[key]; ok {
		return c, nil
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     key,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: m.httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	m.clients[key] = c
	return c, nil
}
