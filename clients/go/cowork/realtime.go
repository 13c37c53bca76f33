package cowork

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// UnsubscribeFunc tears down one subscription.
type UnsubscribeFunc func()

// subscribeSSE opens an SSE stream and invokes handler with each data
// payload. It returns once the connection is established; the stream is
// consumed on a background goroutine until unsubscribed or the server
// closes it.
func (c *Client) subscribeSSE(path string, handler func(data []byte)) (UnsubscribeFunc, error) {
	ctx, cancel := context.WithCancel(context.Background())

	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+path, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	// The stream outlives the client's request timeout on purpose.
	resp, err := http.DefaultTransport.RoundTrip(req)
	if err != nil {
		cancel()
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, &APIError{Status: resp.StatusCode, Message: "stream rejected"}
	}

	go func() {
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if data, ok := strings.CutPrefix(line, "data: "); ok {
				handler([]byte(data))
			}
		}
	}()

	return func() { cancel() }, nil
}

// SubscribeMessages streams new messages for a match.
func (c *Client) SubscribeMessages(matchID string, handler func(Message)) (UnsubscribeFunc, error) {
	return c.subscribeSSE("/matches/"+matchID+"/messages/stream", func(data []byte) {
		var msg Message
		if err := json.Unmarshal(data, &msg); err == nil {
			handler(msg)
		}
	})
}

// SubscribeSession streams state updates for one session.
func (c *Client) SubscribeSession(sessionID string, handler func(Session)) (UnsubscribeFunc, error) {
	return c.subscribeSSE("/sessions/"+sessionID+"/stream", func(data []byte) {
		var sess Session
		if err := json.Unmarshal(data, &sess); err == nil {
			handler(sess)
		}
	})
}

// SubscribeSessionEvents streams new timeline events for one session.
func (c *Client) SubscribeSessionEvents(sessionID string, handler func(SessionEvent)) (UnsubscribeFunc, error) {
	return c.subscribeSSE("/sessions/"+sessionID+"/events/stream", func(data []byte) {
		var event SessionEvent
		if err := json.Unmarshal(data, &event); err == nil {
			handler(event)
		}
	})
}
