package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/imposter/internal/models"
	"github.com/sirupsen/logrus"
)

// Subprotocol is the WebSocket subprotocol spoken by the room subscription endpoint.
const Subprotocol = "room"

// Remote talks to the sync gateway over HTTP and subscribes over WebSocket.
// A Remote built without a base URL or API key short-circuits every call with
// ErrNotConfigured.
type Remote struct {
	baseURL *url.URL
	apiKey  string
	http    *http.Client
	logger  logrus.FieldLogger
}

// NewRemote returns a client for the gateway at baseURL.
func NewRemote(baseURL, apiKey string, httpClient *http.Client, logger logrus.FieldLogger) (*Remote, error) {
	r := &Remote{apiKey: apiKey, http: httpClient, logger: logger}
	if r.http == nil {
		r.http = http.DefaultClient
	}
	if baseURL == "" {
		return r, nil
	}
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid sync url %q: %w", baseURL, err)
	}
	r.baseURL = u
	return r, nil
}

// Configured reports whether the client has credentials.
func (r *Remote) Configured() bool {
	return r.baseURL != nil && r.apiKey != ""
}

type errorBody struct {
	Error string `json:"error"`
}

func (r *Remote) endpoint(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return r.baseURL.String() + "/" + strings.Join(escaped, "/")
}

func (r *Remote) do(ctx context.Context, method, target string, body any, out any) error {
	if !r.Configured() {
		return ErrNotConfigured
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return connErr(method+" "+target, err)
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return connErr(method+" "+target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var eb errorBody
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		return statusError(resp.StatusCode, eb.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return connErr("decode response", err)
	}
	return nil
}

// statusError maps gateway responses back onto the store sentinels.
func statusError(status int, msg string) error {
	switch status {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrRoomNotFound, msg)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrRoomExists, msg)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrUnknownField, msg)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrNotConfigured, msg)
	default:
		return fmt.Errorf("%w: gateway returned %d: %s", ErrConnection, status, msg)
	}
}

// CreateRoom implements Client.
func (r *Remote) CreateRoom(ctx context.Context, room *models.Room) (string, error) {
	var out struct {
		RoomCode string `json:"room_code"`
	}
	if err := r.do(ctx, http.MethodPost, r.endpoint("rooms"), room, &out); err != nil {
		return "", err
	}
	return out.RoomCode, nil
}

// FetchRoom implements Client.
func (r *Remote) FetchRoom(ctx context.Context, code string) (*models.Room, error) {
	var room models.Room
	if err := r.do(ctx, http.MethodGet, r.endpoint("rooms", code), nil, &room); err != nil {
		return nil, err
	}
	room.Normalize()
	return &room, nil
}

// FetchField implements Client.
func (r *Remote) FetchField(ctx context.Context, code string, field models.Field) (json.RawMessage, error) {
	if err := checkField(field); err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := r.do(ctx, http.MethodGet, r.endpoint("rooms", code, "fields", string(field)), nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// UpdateRoom implements Client.
func (r *Remote) UpdateRoom(ctx context.Context, code string, patch models.RoomPatch) error {
	return r.do(ctx, http.MethodPatch, r.endpoint("rooms", code), patch, nil)
}

// Subscribe implements Client. The gateway pushes a full snapshot per change.
func (r *Remote) Subscribe(ctx context.Context, code string, onUpdate func(*models.Room)) (Unsubscribe, error) {
	if !r.Configured() {
		return nil, ErrNotConfigured
	}

	wsURL := *r.baseURL
	switch wsURL.Scheme {
	case "https":
		wsURL.Scheme = "wss"
	default:
		wsURL.Scheme = "ws"
	}
	target := strings.Replace(r.endpoint("rooms", code, "subscribe"), r.baseURL.String(), wsURL.String(), 1)

	subCtx, cancel := context.WithCancel(ctx)
	c, resp, err := websocket.Dial(subCtx, target, &websocket.DialOptions{
		HTTPClient:   r.http,
		HTTPHeader:   http.Header{"Authorization": []string{"Bearer " + r.apiKey}},
		Subprotocols: []string{Subprotocol},
	})
	if err != nil {
		cancel()
		if resp != nil && resp.StatusCode >= 300 {
			return nil, statusError(resp.StatusCode, err.Error())
		}
		return nil, connErr("subscribe", err)
	}
	c.SetReadLimit(1 << 20)

	log := r.logger.WithField("room", code)
	go func() {
		defer c.CloseNow()
		for {
			typ, msg, err := c.Read(subCtx)
			if err != nil {
				status := websocket.CloseStatus(err)
				if subCtx.Err() == nil && status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
					log.Warnf("room subscription closed: %v", err)
				}
				return
			}
			if typ != websocket.MessageText {
				continue
			}
			var room models.Room
			if err := json.Unmarshal(msg, &room); err != nil {
				log.Warnf("invalid room snapshot: %v", err)
				continue
			}
			room.Normalize()
			onUpdate(&room)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.Close(websocket.StatusNormalClosure, "unsubscribe")
			cancel()
		})
	}, nil
}
