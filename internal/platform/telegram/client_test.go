package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SendMessage(t *testing.T) {
	var got sendMessageReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bot123:abc/sendMessage", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	err := NewClient("123:abc", srv.URL+"/").SendMessage(context.Background(), -100, "RED: chest pain")

	require.NoError(t, err)
	assert.Equal(t, int64(-100), got.ChatID)
	assert.Equal(t, "RED: chest pain", got.Text)
}

func TestClient_SendDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottok/sendDocument", r.URL.Path)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "42", r.FormValue("chat_id"))
		f, hdr, err := r.FormFile("document")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "slip.pdf", hdr.Filename)
		assert.Equal(t, "%PDF", string(data))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	err := NewClient("tok", srv.URL).SendDocument(context.Background(), 42, []byte("%PDF"), "slip.pdf")

	require.NoError(t, err)
}

func TestClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	err := NewClient("tok", srv.URL).SendMessage(context.Background(), 1, "hi")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestClient_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewClient("tok", "http://127.0.0.1:0").SendMessage(ctx, 1, "hi")

	assert.ErrorIs(t, err, context.Canceled)
}
