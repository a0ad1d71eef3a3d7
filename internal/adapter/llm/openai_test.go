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

func TestNewClient_MissingKey(t *testing.T) {
	t.Setenv("REPORAG_TEST_LLM_KEY", "")
	_, err := NewClient(Options{APIKeyEnv: "REPORAG_TEST_LLM_KEY"})
	assert.Error(t, err)
}

func TestClient_GenerateWithSystem(t *testing.T) {
	var roles []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		var body struct {
			Messages []struct {
				Role string `json:"role"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		for _, m := range body.Messages {
			roles = append(roles, m.Role)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-3.5-turbo",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "  It greets you.  "}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 4, "total_tokens": 14}
		}`))
	}))
	defer srv.Close()

	t.Setenv("REPORAG_TEST_LLM_KEY", "sk-test")
	c, err := NewClient(Options{APIKeyEnv: "REPORAG_TEST_LLM_KEY", BaseURL: srv.URL, Temperature: DefaultTemperature})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, c.ModelName())

	answer, err := c.GenerateWithSystem(context.Background(), "Answer using the context.", "What does hello do?")
	require.NoError(t, err)
	assert.Equal(t, "It greets you.", answer)
	assert.Equal(t, []string{"system", "user"}, roles)
}

func TestClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "overloaded", "type": "server_error"}}`))
	}))
	defer srv.Close()

	t.Setenv("REPORAG_TEST_LLM_KEY", "sk-test")
	c, err := NewClient(Options{APIKeyEnv: "REPORAG_TEST_LLM_KEY", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.GenerateWithSystem(context.Background(), "sys", "user")
	assert.Error(t, err)
}
