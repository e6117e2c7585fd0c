package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessage(t *testing.T) {
	t.Run("posts to the bot's endpoint", func(t *testing.T) {
		var gotPath string
		var gotBody sendMessageRequest

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			json.NewEncoder(w).Encode(apiResponse{OK: true})
		}))
		defer srv.Close()

		c := NewClient(srv.URL)
		markup := &InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{
			{{Text: "Renew", URL: "https://pay.example.com"}},
		}}

		err := c.SendMessage(context.Background(), "tok-123", 42, "hello", markup)
		require.NoError(t, err)
		assert.Equal(t, "/bottok-123/sendMessage", gotPath)
		assert.Equal(t, int64(42), gotBody.ChatID)
		assert.Equal(t, "hello", gotBody.Text)
		require.NotNil(t, gotBody.ReplyMarkup)
		assert.Len(t, gotBody.ReplyMarkup.InlineKeyboard, 1)
	})

	t.Run("api rejection becomes an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(apiResponse{OK: false, Description: "chat not found"})
		}))
		defer srv.Close()

		c := NewClient(srv.URL)
		err := c.SendMessage(context.Background(), "tok", 1, "hi", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "chat not found")
	})

	t.Run("unreachable server", func(t *testing.T) {
		c := NewClient("http://127.0.0.1:0")
		err := c.SendMessage(context.Background(), "tok", 1, "hi", nil)
		assert.Error(t, err)
	})
}
