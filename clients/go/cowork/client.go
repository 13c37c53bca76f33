// Package cowork provides a client for the CoWork Connect API, plus the
// chat timeline reconciliation used by interactive frontends.
package cowork

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Client is a CoWork Connect API client.
type Client struct {
	BaseURL    string
	ConfigDir  string
	Token      string
	UserID     string
	HTTPClient *http.Client
}

// Config holds saved credentials.
type Config struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

// NewClient creates a new client. Saved credentials are loaded from
// COWORK_CONFIG (default ~/.cowork) if present.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	configDir := os.Getenv("COWORK_CONFIG")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".cowork")
	}

	c := &Client{
		BaseURL:    baseURL,
		ConfigDir:  configDir,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}

	_ = c.LoadConfig()
	return c
}

// LoadConfig loads saved credentials from disk.
func (c *Client) LoadConfig() error {
	data, err := os.ReadFile(filepath.Join(c.ConfigDir, "credentials.json"))
	if err != nil {
		return err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return err
	}

	c.Token = config.Token
	c.UserID = config.UserID
	return nil
}

// SaveConfig saves credentials to disk.
func (c *Client) SaveConfig() error {
	if err := os.MkdirAll(c.ConfigDir, 0700); err != nil {
		return err
	}

	data, _ := json.MarshalIndent(Config{Token: c.Token, UserID: c.UserID}, "", "  ")
	return os.WriteFile(filepath.Join(c.ConfigDir, "credentials.json"), data, 0600)
}

// doRequest performs an HTTP request, attaching the bearer token when set.
func (c *Client) doRequest(method, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequest(method, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.Unmarshal(respBody, &errResp)
		return nil, &APIError{Status: resp.StatusCode, Message: errResp.Error}
	}

	return respBody, nil
}

func (c *Client) get(path string, out interface{}) error {
	respBody, err := c.doRequest("GET", path, nil)
	if err != nil {
		return err
	}
	return json.Unmarshal(respBody, out)
}

func (c *Client) send(method, path string, in, out interface{}) error {
	var body []byte
	if in != nil {
		body, _ = json.Marshal(in)
	}
	respBody, err := c.doRequest(method, path, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	Token   string  `json:"token"`
	Profile Profile `json:"profile"`
}

// Signup creates an account and stores the returned token.
func (c *Client) Signup(email, password, name string) (*AuthResponse, error) {
	var resp AuthResponse
	err := c.send("POST", "/signup", map[string]string{
		"email": email, "password": password, "name": name,
	}, &resp)
	if err != nil {
		return nil, &CommandError{Op: "signup", Err: err}
	}

	c.Token = resp.Token
	c.UserID = resp.Profile.ID
	if err := c.SaveConfig(); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login authenticates and stores the returned token.
func (c *Client) Login(email, password string) (*AuthResponse, error) {
	var resp AuthResponse
	err := c.send("POST", "/login", map[string]string{
		"email": email, "password": password,
	}, &resp)
	if err != nil {
		return nil, &CommandError{Op: "login", Err: err}
	}

	c.Token = resp.Token
	c.UserID = resp.Profile.ID
	if err := c.SaveConfig(); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me returns the authenticated profile.
func (c *Client) Me() (*Profile, error) {
	var p Profile
	if err := c.get("/me", &p); err != nil {
		return nil, &FetchError{Op: "me", Err: err}
	}
	return &p, nil
}

// UpdateMe applies a partial profile update. Only non-nil fields change.
func (c *Client) UpdateMe(fields map[string]interface{}) (*Profile, error) {
	var p Profile
	if err := c.send("PATCH", "/me", fields, &p); err != nil {
		return nil, &CommandError{Op: "update profile", Err: err}
	}
	return &p, nil
}

// Who returns another user's public profile.
func (c *Client) Who(userID string) (*Profile, error) {
	var p Profile
	if err := c.get("/who/"+userID, &p); err != nil {
		return nil, &FetchError{Op: "who", Err: err}
	}
	return &p, nil
}

// SetIntent creates or replaces the day's coworking intent.
func (c *Client) SetIntent(intent WorkIntent) (*WorkIntent, error) {
	var out WorkIntent
	if err := c.send("PUT", "/intent", intent, &out); err != nil {
		return nil, &CommandError{Op: "set intent", Err: err}
	}
	return &out, nil
}

// GetIntent returns the day's intent, or nil if none is set.
func (c *Client) GetIntent(date string) (*WorkIntent, error) {
	path := "/intent"
	if date != "" {
		path += "?date=" + url.QueryEscape(date)
	}
	var out WorkIntent
	err := c.get(path, &out)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, nil
		}
		return nil, &FetchError{Op: "get intent", Err: err}
	}
	return &out, nil
}

// Discover returns nearby candidates for the day, nearest first.
func (c *Client) Discover(date string) ([]DiscoveryCard, error) {
	path := "/discover"
	if date != "" {
		path += "?date=" + url.QueryEscape(date)
	}
	var resp struct {
		Cards []DiscoveryCard `json:"cards"`
	}
	if err := c.get(path, &resp); err != nil {
		return nil, &FetchError{Op: "discover", Err: err}
	}
	return resp.Cards, nil
}

// SwipeResult reports whether a swipe produced a match.
type SwipeResult struct {
	Matched bool   `json:"matched"`
	Match   *Match `json:"match,omitempty"`
}

// Swipe records a decision on a candidate.
func (c *Client) Swipe(swipedID, direction string) (*SwipeResult, error) {
	var resp SwipeResult
	err := c.send("POST", "/swipes", map[string]string{
		"swiped_id": swipedID, "direction": direction,
	}, &resp)
	if err != nil {
		return nil, &CommandError{Op: "swipe", Err: err}
	}
	return &resp, nil
}

// Matches returns the caller's match previews.
func (c *Client) Matches() ([]MatchPreview, error) {
	var resp struct {
		Matches []MatchPreview `json:"matches"`
	}
	if err := c.get("/matches", &resp); err != nil {
		return nil, &FetchError{Op: "matches", Err: err}
	}
	return resp.Matches, nil
}

// Unread returns the total unread message count.
func (c *Client) Unread() (int, error) {
	var resp struct {
		Unread int `json:"unread"`
	}
	if err := c.get("/unread", &resp); err != nil {
		return 0, &FetchError{Op: "unread", Err: err}
	}
	return resp.Unread, nil
}

// Messages returns all messages for a match, oldest first.
func (c *Client) Messages(matchID string) ([]Message, error) {
	var resp struct {
		Messages []Message `json:"messages"`
	}
	if err := c.get("/matches/"+matchID+"/messages", &resp); err != nil {
		return nil, &FetchError{Op: "messages", Err: err}
	}
	return resp.Messages, nil
}

// SendMessage sends a chat message.
func (c *Client) SendMessage(matchID, content string) (*Message, error) {
	var msg Message
	err := c.send("POST", "/matches/"+matchID+"/messages", map[string]string{
		"content": content,
	}, &msg)
	if err != nil {
		return nil, &CommandError{Op: "send message", Err: err}
	}
	return &msg, nil
}

// MarkRead advances the caller's read marker on a match.
func (c *Client) MarkRead(matchID string) error {
	if err := c.send("POST", "/matches/"+matchID+"/read", nil, nil); err != nil {
		return &CommandError{Op: "mark read", Err: err}
	}
	return nil
}

// Sessions returns all sessions for a match, oldest first.
func (c *Client) Sessions(matchID string) ([]Session, error) {
	var resp struct {
		Sessions []Session `json:"sessions"`
	}
	if err := c.get("/matches/"+matchID+"/sessions", &resp); err != nil {
		return nil, &FetchError{Op: "sessions", Err: err}
	}
	return resp.Sessions, nil
}

// ProposeSession proposes a coworking session on a match.
func (c *Client) ProposeSession(matchID, scheduledDate string) (*Session, error) {
	var sess Session
	err := c.send("POST", "/sessions", map[string]string{
		"match_id": matchID, "scheduled_date": scheduledDate,
	}, &sess)
	if err != nil {
		return nil, &CommandError{Op: "propose session", Err: err}
	}
	return &sess, nil
}

// RespondToSession accepts or declines a pending session.
func (c *Client) RespondToSession(sessionID, response string) (*Session, error) {
	var sess Session
	err := c.send("POST", "/sessions/"+sessionID+"/respond", map[string]string{
		"response": response,
	}, &sess)
	if err != nil {
		return nil, &CommandError{Op: "respond to session", Err: err}
	}
	return &sess, nil
}

// CancelSession cancels a pending or active session.
func (c *Client) CancelSession(sessionID string) (*Session, error) {
	var sess Session
	if err := c.send("POST", "/sessions/"+sessionID+"/cancel", nil, &sess); err != nil {
		return nil, &CommandError{Op: "cancel session", Err: err}
	}
	return &sess, nil
}

// LockInSession records the caller's lock-in on an active session.
func (c *Client) LockInSession(sessionID string) (*Session, error) {
	var sess Session
	if err := c.send("POST", "/sessions/"+sessionID+"/lockin", nil, &sess); err != nil {
		return nil, &CommandError{Op: "lock in session", Err: err}
	}
	return &sess, nil
}

// SessionEvents returns timeline events for the given sessions.
func (c *Client) SessionEvents(sessionIDs []string) ([]SessionEvent, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	path := "/session-events?session_ids=" + url.QueryEscape(strings.Join(sessionIDs, ","))
	var resp struct {
		Events []SessionEvent `json:"events"`
	}
	if err := c.get(path, &resp); err != nil {
		return nil, &FetchError{Op: "session events", Err: err}
	}
	return resp.Events, nil
}

// Health checks server health.
func (c *Client) Health() (map[string]interface{}, error) {
	var resp map[string]interface{}
	if err := c.get("/health", &resp); err != nil {
		return nil, &FetchError{Op: "health", Err: err}
	}
	return resp, nil
}
