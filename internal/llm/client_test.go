package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func chatReply(t *testing.T, w http.ResponseWriter, content, reasoning string) {
	t.Helper()
	resp := map[string]any{
		"choices": []map[string]any{{
			"message": map[string]any{
				"role":              "assistant",
				"content":           content,
				"reasoning_content": reasoning,
			},
		}},
	}
	require.NoError(t, json.NewEncoder(w).Encode(resp))
}

func testClient(url string) *Client {
	return NewClient(ClientConfig{
		APIKey:     "sk-test",
		BaseURL:    url,
		Model:      "test-model",
		Timeout:    5 * time.Second,
		MaxRetries: 2,
	})
}

func TestCompleteSuccess(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		chatReply(t, w, "  hello world  ", "the plan")
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	comp, err := c.Complete(context.Background(), "be brief", []Message{{Role: "user", Content: "hi"}}, 0)
	require.NoError(t, err)
	require.Equal(t, "hello world", comp.Text, "reply is trimmed")
	require.Equal(t, "the plan", comp.Reasoning)
	require.Equal(t, "Bearer sk-test", gotAuth)
	require.Equal(t, "test-model", gotReq.Model)
	require.Len(t, gotReq.Messages, 2)
	require.Equal(t, "system", gotReq.Messages[0].Role)
	require.Equal(t, "be brief", gotReq.Messages[0].Content)
}

func TestCompleteRetriesOn429(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		chatReply(t, w, "ok", "")
	}))
	defer srv.Close()

	comp, err := testClient(srv.URL).Complete(context.Background(), "", []Message{{Role: "user", Content: "hi"}}, 0)
	require.NoError(t, err)
	require.Equal(t, "ok", comp.Text)
	require.Equal(t, int32(2), calls.Load())
}

func TestCompleteGivesUpAfterRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Complete(context.Background(), "", []Message{{Role: "user", Content: "hi"}}, 0)
	require.Error(t, err)
	require.Contains(t, err.Error(), "max retries exceeded")
}

func TestCompleteHardFailsOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Complete(context.Background(), "", []Message{{Role: "user", Content: "hi"}}, 0)
	require.Error(t, err)
	require.Equal(t, int32(1), calls.Load(), "4xx other than 429 is not retried")
}

func TestCompleteRequiresAPIKey(t *testing.T) {
	c := NewClient(ClientConfig{Model: "m"})
	_, err := c.Complete(context.Background(), "", []Message{{Role: "user", Content: "hi"}}, 0)
	require.Error(t, err)
	require.Contains(t, err.Error(), "API key")
}

func TestCompleteSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "model overloaded"},
		})
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Complete(context.Background(), "", []Message{{Role: "user", Content: "hi"}}, 0)
	require.Error(t, err)
	require.Contains(t, err.Error(), "model overloaded")
}
