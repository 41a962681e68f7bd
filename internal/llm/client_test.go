package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModelURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    ModelRef
		wantErr bool
	}{
		{
			name: "ollama model",
			raw:  "ollama://llama3",
			want: ModelRef{Backend: "ollama", Model: "llama3"},
		},
		{
			name: "openai model",
			raw:  "openai://gpt-4o-mini",
			want: ModelRef{Backend: "openai", Model: "gpt-4o-mini"},
		},
		{
			name: "scheme is case-insensitive",
			raw:  "OLLAMA://llama3",
			want: ModelRef{Backend: "ollama", Model: "llama3"},
		},
		{
			name: "tag carried in user component",
			raw:  "ollama://8b@llama3",
			want: ModelRef{Backend: "ollama", Model: "llama3:8b"},
		},
		{
			name: "explicit http endpoint",
			raw:  "http://llama3@localhost:8080/v1",
			want: ModelRef{Backend: "http", Model: "llama3", BaseURL: "http://localhost:8080/v1"},
		},
		{
			name: "explicit https endpoint without path",
			raw:  "https://mymodel@inference.internal",
			want: ModelRef{Backend: "https", Model: "mymodel", BaseURL: "https://inference.internal"},
		},
		{
			name: "explicit endpoint trailing slash trimmed",
			raw:  "http://llama3@localhost:8080/v1/",
			want: ModelRef{Backend: "http", Model: "llama3", BaseURL: "http://localhost:8080/v1"},
		},
		{name: "explicit endpoint without model", raw: "http://localhost:8080/v1", wantErr: true},
		{name: "explicit endpoint without host", raw: "http://llama3@", wantErr: true},
		{name: "unsupported backend", raw: "bedrock://titan", wantErr: true},
		{name: "no model", raw: "ollama://", wantErr: true},
		{name: "no scheme", raw: "llama3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ParseModelURL(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ref)
		})
	}
}

func TestChatSendsRequestAndReturnsFirstChoice(t *testing.T) {
	var got chatRequest
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "first choice"}},
				{"message": map[string]string{"role": "assistant", "content": "second choice"}},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(ModelRef{Backend: "openai", Model: "gpt-4o-mini"}, srv.URL+"/v1", "secret-key")

	content, err := client.Chat(context.Background(), []Message{UserMessage("hello")})
	require.NoError(t, err)
	assert.Equal(t, "first choice", content)
	assert.Equal(t, "Bearer secret-key", gotAuth)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, Message{Role: "user", Content: "hello"}, got.Messages[0])
}

func TestChatUsesExplicitEndpointFromModelURL(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotModel = req.Model
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": "ok"}}},
		})
	}))
	defer srv.Close()

	ref, err := ParseModelURL("http://llama3@" + srv.Listener.Addr().String() + "/v1")
	require.NoError(t, err)
	client := NewClient(ref, "", "")

	content, err := client.Chat(context.Background(), []Message{UserMessage("hello")})
	require.NoError(t, err)
	assert.Equal(t, "ok", content)
	assert.Equal(t, "llama3", gotModel)
}

func TestChatOmitsAuthHeaderWithoutKey(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": "ok"}}},
		})
	}))
	defer srv.Close()

	client := NewClient(ModelRef{Backend: "ollama", Model: "llama3"}, srv.URL+"/v1", "")

	_, err := client.Chat(context.Background(), []Message{UserMessage("hello")})
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestChatNonSuccessStatusIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(ModelRef{Backend: "openai", Model: "gpt-4o-mini"}, srv.URL+"/v1", "k")

	_, err := client.Chat(context.Background(), []Message{UserMessage("hello")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestChatEmptyChoicesIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	client := NewClient(ModelRef{Backend: "openai", Model: "gpt-4o-mini"}, srv.URL+"/v1", "k")

	_, err := client.Chat(context.Background(), []Message{UserMessage("hello")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}
