package server

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"testing"
)

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp := doRequest(t, ts, http.MethodGet, "/healthz", nil, caller{})
	body := expectStatus(t, resp, http.StatusOK)
	if body["status"] != "ok" {
		t.Fatalf("expected ok, got %#v", body["status"])
	}
}

func TestAdminLogin(t *testing.T) {
	ts := newTestServer(t)

	resp := doRequest(t, ts, http.MethodPost, "/api/admin/login", map[string]string{
		"username": "admin",
		"password": "wrong",
	}, caller{})
	expectError(t, resp, http.StatusUnauthorized, "invalid credentials")

	resp = doRequest(t, ts, http.MethodPost, "/api/admin/login", map[string]string{
		"username": "admin",
	}, caller{})
	expectError(t, resp, http.StatusBadRequest, "username and password are required")

	resp = doRequest(t, ts, http.MethodPost, "/api/admin/login", map[string]string{
		"username": "admin",
		"password": testAdminPassword,
	}, caller{})
	expectStatus(t, resp, http.StatusOK)
	var session *http.Cookie
	for _, cookie := range resp.Cookies() {
		if cookie.Name == adminCookie {
			session = cookie
		}
	}
	if session == nil || session.Value == "" {
		t.Fatalf("expected %s cookie to be set", adminCookie)
	}

	resp = doRequest(t, ts, http.MethodGet, "/api/admin/games", nil, caller{cookies: []*http.Cookie{session}})
	expectStatus(t, resp, http.StatusOK)

	resp = doRequest(t, ts, http.MethodGet, "/api/admin/games", nil, caller{admin: "not-a-token"})
	expectError(t, resp, http.StatusForbidden, "admin only")
}

func TestErrorStatuses(t *testing.T) {
	ts := newTestServer(t)
	admin := loginAdmin(t, ts)
	code, _ := createGame(t, ts, admin, "Ada")
	benToken := joinPlayer(t, ts, code, "Ben")

	tests := []struct {
		name    string
		method  string
		path    string
		payload any
		as      caller
		status  int
		message string
	}{
		{
			name:    "unknown game",
			method:  http.MethodGet,
			path:    "/api/games/ZZZZZZ",
			status:  http.StatusNotFound,
			message: "game not found",
		},
		{
			name:    "join unknown game",
			method:  http.MethodPost,
			path:    "/api/games/ZZZZZZ/join",
			payload: map[string]string{"nickname": "Cy"},
			status:  http.StatusNotFound,
			message: "game not found",
		},
		{
			name:    "duplicate nickname",
			method:  http.MethodPost,
			path:    "/api/games/" + code + "/join",
			payload: map[string]string{"nickname": "ben"},
			status:  http.StatusBadRequest,
			message: "nickname already taken",
		},
		{
			name:    "submit in lobby",
			method:  http.MethodPost,
			path:    "/api/games/" + code + "/submit",
			payload: map[string]string{"content": "hello"},
			as:      caller{session: benToken},
			status:  http.StatusBadRequest,
			message: "game is not in playing state",
		},
		{
			name:    "vote in lobby",
			method:  http.MethodPost,
			path:    "/api/games/" + code + "/vote",
			payload: map[string]any{"chainOwnerId": 1},
			status:  http.StatusBadRequest,
			message: "game is not in voting state",
		},
		{
			name:    "start as player",
			method:  http.MethodPost,
			path:    "/api/games/" + code + "/start",
			as:      caller{session: benToken},
			status:  http.StatusForbidden,
			message: "admin only",
		},
		{
			name:    "chains before reveal",
			method:  http.MethodGet,
			path:    "/api/games/" + code + "/chains",
			status:  http.StatusBadRequest,
			message: "chains are not available yet",
		},
		{
			name:    "chain without owner",
			method:  http.MethodGet,
			path:    "/api/games/" + code + "/chain",
			status:  http.StatusBadRequest,
			message: "chainOwnerId is required",
		},
		{
			name:    "create as player",
			method:  http.MethodPost,
			path:    "/api/admin/games",
			payload: map[string]string{"nickname": "Dee"},
			as:      caller{session: benToken},
			status:  http.StatusForbidden,
			message: "admin only",
		},
		{
			name:    "manage bad action",
			method:  http.MethodPatch,
			path:    "/api/admin/games",
			payload: map[string]string{"code": code, "action": "pause"},
			as:      admin,
			status:  http.StatusBadRequest,
			message: "code and action (archive or delete) are required",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := doRequest(t, ts, tc.method, tc.path, tc.payload, tc.as)
			expectError(t, resp, tc.status, tc.message)
		})
	}
}

func TestSubmitWithoutSession(t *testing.T) {
	ts := newTestServer(t)
	admin := loginAdmin(t, ts)
	code, _ := createGame(t, ts, admin, "Ada")
	joinPlayer(t, ts, code, "Ben")
	expectStatus(t, doRequest(t, ts, http.MethodPost, "/api/games/"+code+"/start", nil, admin), http.StatusOK)

	resp := doRequest(t, ts, http.MethodPost, "/api/games/"+code+"/submit", map[string]string{
		"content": "hello",
	}, caller{})
	expectError(t, resp, http.StatusUnauthorized, "not a player in this game")

	resp = doRequest(t, ts, http.MethodPost, "/api/games/"+code+"/submit", map[string]string{
		"content": "hello",
	}, caller{session: "bogus"})
	expectError(t, resp, http.StatusUnauthorized, "not a player in this game")
}

func TestJoinNicknameValidation(t *testing.T) {
	ts := newTestServer(t)
	admin := loginAdmin(t, ts)
	code, _ := createGame(t, ts, admin, "Ada")

	tests := []struct {
		name     string
		nickname string
		message  string
	}{
		{name: "missing", nickname: "", message: "nickname is required"},
		{name: "whitespace", nickname: "   ", message: "nickname must be 1-20 letters, digits, spaces or - _ ' . ! ?"},
		{name: "too long", nickname: "abcdefghijklmnopqrstu", message: "nickname must be 1-20 letters, digits, spaces or - _ ' . ! ?"},
		{name: "markup", nickname: "<b>Ben</b>", message: "nickname must be 1-20 letters, digits, spaces or - _ ' . ! ?"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := doRequest(t, ts, http.MethodPost, "/api/games/"+code+"/join", map[string]string{
				"nickname": tc.nickname,
			}, caller{})
			expectError(t, resp, http.StatusBadRequest, tc.message)
		})
	}

	for _, nickname := range []string{"José", "Zoë", "李雷"} {
		resp := doRequest(t, ts, http.MethodPost, "/api/games/"+code+"/join", map[string]string{
			"nickname": nickname,
		}, caller{})
		body := expectStatus(t, resp, http.StatusOK)
		if got := body["player"].(map[string]any)["nickname"]; got != nickname {
			t.Fatalf("expected nickname %q, got %#v", nickname, got)
		}
	}

	resp := doRequest(t, ts, http.MethodPost, "/api/games/"+code+"/join", map[string]string{
		"nickname": "  Big   Ben ",
	}, caller{})
	body := expectStatus(t, resp, http.StatusOK)
	if got := body["player"].(map[string]any)["nickname"]; got != "Big Ben" {
		t.Fatalf("expected normalized nickname, got %#v", got)
	}
}

func TestSessionCookieIdentifiesPlayer(t *testing.T) {
	ts := newTestServer(t)
	admin := loginAdmin(t, ts)
	code, _ := createGame(t, ts, admin, "Ada")

	resp := doRequest(t, ts, http.MethodPost, "/api/games/"+code+"/join", map[string]string{
		"nickname": "Ben",
	}, caller{})
	expectStatus(t, resp, http.StatusOK)

	var scoped, last *http.Cookie
	for _, cookie := range resp.Cookies() {
		switch cookie.Name {
		case sessionCookieName(code):
			scoped = cookie
		case lastSessionCookie:
			last = cookie
		}
	}
	if scoped == nil || last == nil {
		t.Fatalf("expected both session cookies, got %v", resp.Cookies())
	}

	view := fetchView(t, ts, code, caller{cookies: []*http.Cookie{scoped}})
	if me, ok := view["myPlayer"].(map[string]any); !ok || me["nickname"] != "Ben" {
		t.Fatalf("expected scoped cookie to bind Ben, got %#v", view["myPlayer"])
	}
	view = fetchView(t, ts, code, caller{cookies: []*http.Cookie{last}})
	if me, ok := view["myPlayer"].(map[string]any); !ok || me["nickname"] != "Ben" {
		t.Fatalf("expected fallback cookie to bind Ben, got %#v", view["myPlayer"])
	}
	if view["isAdmin"] != false {
		t.Fatalf("expected non-admin view, got %#v", view["isAdmin"])
	}
}

func TestAdminListGamesPagination(t *testing.T) {
	ts := newTestServer(t)
	admin := loginAdmin(t, ts)
	for i := 0; i < 3; i++ {
		createGame(t, ts, admin, fmt.Sprintf("Host %d", i))
	}

	resp := doRequest(t, ts, http.MethodGet, "/api/admin/games?page=2&per_page=2", nil, admin)
	body := expectStatus(t, resp, http.StatusOK)
	if games := body["games"].([]any); len(games) != 1 {
		t.Fatalf("expected 1 game on page 2, got %d", len(games))
	}
	page := body["pagination"].(map[string]any)
	if page["total"] != float64(3) || page["totalPages"] != float64(2) || page["page"] != float64(2) {
		t.Fatalf("unexpected pagination: %#v", page)
	}

	resp = doRequest(t, ts, http.MethodGet, "/api/admin/games?page=9&per_page=500", nil, admin)
	body = expectStatus(t, resp, http.StatusOK)
	page = body["pagination"].(map[string]any)
	if page["page"] != float64(1) || page["perPage"] != float64(maxPerPage) {
		t.Fatalf("expected clamped pagination, got %#v", page)
	}
}

func TestAdminManageGame(t *testing.T) {
	ts := newTestServer(t)
	admin := loginAdmin(t, ts)
	archived, _ := createGame(t, ts, admin, "Ada")
	deleted, _ := createGame(t, ts, admin, "Ben")
	createGame(t, ts, admin, "Cy")

	resp := doRequest(t, ts, http.MethodPatch, "/api/admin/games", map[string]string{
		"code":   archived,
		"action": "archive",
	}, admin)
	expectStatus(t, resp, http.StatusOK)

	resp = doRequest(t, ts, http.MethodPatch, "/api/admin/games", map[string]string{
		"code":   deleted,
		"action": "delete",
	}, admin)
	expectStatus(t, resp, http.StatusOK)

	resp = doRequest(t, ts, http.MethodGet, "/api/games/"+deleted, nil, caller{})
	expectError(t, resp, http.StatusNotFound, "game not found")

	resp = doRequest(t, ts, http.MethodGet, "/api/admin/games?active=true", nil, admin)
	body := expectStatus(t, resp, http.StatusOK)
	games := body["games"].([]any)
	if len(games) != 1 {
		t.Fatalf("expected 1 active game, got %d", len(games))
	}

	resp = doRequest(t, ts, http.MethodGet, "/api/admin/games", nil, admin)
	body = expectStatus(t, resp, http.StatusOK)
	if games := body["games"].([]any); len(games) != 2 {
		t.Fatalf("expected 2 games, got %d", len(games))
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/games/"+archived+"/join", map[string]string{
		"nickname": "Dee",
	}, caller{})
	expectError(t, resp, http.StatusBadRequest, "game has already started")
}

func TestQRCode(t *testing.T) {
	ts := newTestServer(t)
	admin := loginAdmin(t, ts)
	code, _ := createGame(t, ts, admin, "Ada")

	resp := doRequest(t, ts, http.MethodGet, "/api/games/"+code+"/qr.png", nil, caller{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("expected image/png, got %q", ct)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Fatalf("expected png data")
	}

	resp = doRequest(t, ts, http.MethodGet, "/api/games/ZZZZZZ/qr.png", nil, caller{})
	expectError(t, resp, http.StatusNotFound, "game not found")
}

func TestJoinURL(t *testing.T) {
	srv := &Server{cfg: testConfig()}
	if got := srv.joinURL("ABCDEF"); got != "https://draw.example.com/game/ABCDEF" {
		t.Fatalf("unexpected join url %q", got)
	}
}
