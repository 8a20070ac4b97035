package server

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"drawphone/internal/broadcast"
	"drawphone/internal/config"
	"drawphone/internal/game"
)

const (
	testAdminPassword = "hunter2"
	testDrawing       = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mP8/x8AAwMBAp4pWZkAAAAASUVORK5CYII="
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.AdminPassword = testAdminPassword
	cfg.AdminSecret = "test-secret"
	cfg.PublicURL = "https://draw.example.com"
	return cfg
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts, _ := newTestServerWith(t, game.NewMemoryStore(), nil)
	return ts
}

// newTestServerWith serves a fresh app over store; configure may attach
// optional integrations before the handler is built.
func newTestServerWith(t *testing.T, store game.Store, configure func(*Server)) (*httptest.Server, *game.Service) {
	t.Helper()
	cfg := testConfig()
	hub := broadcast.NewHub(nil)
	svc := game.NewService(store, hub, nil, game.Options{MaxPlayers: cfg.MaxPlayers})
	srv := New(svc, hub, cfg, nil)
	if configure != nil {
		configure(srv)
	}

	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: srv.Handler()},
	}
	ts.Start()
	t.Cleanup(ts.Close)
	return ts, svc
}
