package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
)

func TestSetCheckOriginGatesUpgrade(t *testing.T) {
	SetCheckOrigin(func(r *http.Request) bool {
		return r.Header.Get("Origin") == "http://allowed.test"
	})
	defer SetCheckOrigin(func(r *http.Request) bool { return true })

	service := NewService(&fakeAssetStore{})
	defer service.Close()
	handler := NewHandler(service)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.HandleConnection(w, r)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	header := http.Header{}
	header.Set("Origin", "http://other.test")
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		t.Fatal("expected upgrade to be rejected for a disallowed origin")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 on rejected origin, got %+v", resp)
	}
	resp.Body.Close()

	header.Set("Origin", "http://allowed.test")
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("expected upgrade to succeed for the allowed origin: %v", err)
	}
	resp.Body.Close()
	conn.Close()
}
