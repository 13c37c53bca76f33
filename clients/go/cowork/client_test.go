package cowork

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL)
	c.ConfigDir = t.TempDir()
	return c
}

func TestSignupStoresToken(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/signup" || r.Method != "POST" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["email"] != "a@b.com" {
			t.Errorf("email = %q", req["email"])
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(AuthResponse{
			Token:   "tok123",
			Profile: Profile{ID: "user-1", Email: "a@b.com", Name: "A"},
		})
	}))

	resp, err := c.Signup("a@b.com", "password1", "A")
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if resp.Token != "tok123" || c.Token != "tok123" || c.UserID != "user-1" {
		t.Errorf("token not stored: %+v client=%+v", resp, c)
	}

	// Credentials round-trip through disk.
	c2 := &Client{ConfigDir: c.ConfigDir}
	if err := c2.LoadConfig(); err != nil {
		t.Fatalf("load config: %v", err)
	}
	if c2.Token != "tok123" || c2.UserID != "user-1" {
		t.Errorf("loaded config = %+v", c2)
	}
}

func TestBearerTokenAttached(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok123" {
			t.Errorf("Authorization = %q", got)
		}
		json.NewEncoder(w).Encode(Profile{ID: "user-1"})
	}))
	c.Token = "tok123"

	if _, err := c.Me(); err != nil {
		t.Fatalf("me failed: %v", err)
	}
}

func TestErrorMapping(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "an open session already exists"})
	}))
	c.Token = "tok123"

	_, err := c.ProposeSession("m1", "2026-08-28")
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsConflict(err) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestGetIntentNotFoundIsNil(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "no intent for this date"})
	}))
	c.Token = "tok123"

	intent, err := c.GetIntent("")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if intent != nil {
		t.Errorf("expected nil intent, got %+v", intent)
	}
}

func TestSessionEventsEmptyInput(t *testing.T) {
	c := NewClient("http://unused")
	events, err := c.SessionEvents(nil)
	if err != nil || events != nil {
		t.Errorf("empty input should be a no-op, got (%v, %v)", events, err)
	}
}
