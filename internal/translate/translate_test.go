package translate

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsJapanese(t *testing.T) {
	assert.True(t, ContainsJapanese("ニンテンドースイッチ"))
	assert.True(t, ContainsJapanese("switch 本体"))
	assert.True(t, ContainsJapanese("ぽけもん"))
	assert.False(t, ContainsJapanese("Nintendo Switch OLED"))
	assert.False(t, ContainsJapanese(""))
	assert.False(t, ContainsJapanese("12345 ABC"))
}

func TestClientTranslate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "スイッチ 本体", r.URL.Query().Get("q"))
		fmt.Fprint(w, `{"text": "Switch console"}`)
	}))
	defer server.Close()

	c := NewClient(server.URL, nil)
	assert.Equal(t, "Switch console", c.Translate(context.Background(), "スイッチ 本体"))
}

func TestClientTranslateDegradesToInput(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "not json")
			},
		},
		{
			name: "empty translation",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"text": ""}`)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			c := NewClient(server.URL, nil)
			assert.Equal(t, "スイッチ", c.Translate(context.Background(), "スイッチ"))
		})
	}
}

func TestClientTranslateUnreachableEndpoint(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", nil)
	assert.Equal(t, "スイッチ", c.Translate(context.Background(), "スイッチ"))
}

func TestPassthrough(t *testing.T) {
	assert.Equal(t, "anything", Passthrough{}.Translate(context.Background(), "anything"))
}
