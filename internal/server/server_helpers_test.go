package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// caller carries the credentials a request is made with.
type caller struct {
	admin   string
	session string
	cookies []*http.Cookie
}

func (c caller) with(session string) caller {
	c.session = session
	return c
}

func loginAdmin(t *testing.T, ts *httptest.Server) caller {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/admin/login", map[string]string{
		"username": "admin",
		"password": testAdminPassword,
	}, caller{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	return caller{admin: body["token"].(string)}
}

// createGame creates a game hosted by nickname and returns its code and the
// host's session token.
func createGame(t *testing.T, ts *httptest.Server, admin caller, nickname string) (string, string) {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/admin/games", map[string]any{
		"nickname": nickname,
	}, admin)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	created := body["game"].(map[string]any)
	return created["code"].(string), body["sessionToken"].(string)
}

func joinPlayer(t *testing.T, ts *httptest.Server, code, nickname string) string {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/games/"+code+"/join", map[string]string{
		"nickname": nickname,
	}, caller{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	return body["sessionToken"].(string)
}

func fetchView(t *testing.T, ts *httptest.Server, code string, as caller) map[string]any {
	t.Helper()
	resp := doRequest(t, ts, http.MethodGet, "/api/games/"+code, nil, as)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	return decodeBody(t, resp)
}

func doRequest(t *testing.T, ts *httptest.Server, method, path string, payload any, as caller) *http.Response {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if as.admin != "" {
		req.Header.Set("Authorization", "Bearer "+as.admin)
	}
	if as.session != "" {
		req.Header.Set(sessionHeader, as.session)
	}
	for _, cookie := range as.cookies {
		req.AddCookie(cookie)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() {
		_ = resp.Body.Close()
	})
	return resp
}

func expectStatus(t *testing.T, resp *http.Response, want int) map[string]any {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("expected status %d, got %d", want, resp.StatusCode)
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		return nil
	}
	return decodeBody(t, resp)
}

func expectError(t *testing.T, resp *http.Response, status int, message string) {
	t.Helper()
	body := expectStatus(t, resp, status)
	if body["error"] != message {
		t.Fatalf("expected error %q, got %#v", message, body["error"])
	}
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}
