package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/eventflow/eventflow/internal/models"
)

const (
	feedMinBackoff = time.Second
	feedMaxBackoff = 30 * time.Second
)

type feedMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Feed follows the realtime change stream and hands every change to apply.
type Feed struct {
	wsURL  string
	token  func() string
	apply  func(models.Change)
	dialer *websocket.Dialer
	logger *zap.Logger
}

// NewFeed creates a feed for the API at baseURL (http or https).
func NewFeed(baseURL string, token func() string, apply func(models.Change), logger *zap.Logger) (*Feed, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feed{
		wsURL:  u.String(),
		token:  token,
		apply:  apply,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger: logger,
	}, nil
}

// Run keeps a connection open until ctx is done. It waits while there is no token and reconnects with backoff.
func (f *Feed) Run(ctx context.Context) {
	backoff := feedMinBackoff
	for {
		token := f.token()
		if token != "" {
			connected, err := f.listen(ctx, token)
			if ctx.Err() != nil {
				return
			}
			if connected {
				backoff = feedMinBackoff
			}
			if err != nil {
				f.logger.Debug("change feed disconnected", zap.Error(err), zap.Duration("retry_in", backoff))
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if token != "" {
			backoff = min(backoff*2, feedMaxBackoff)
		}
	}
}

// listen reads one connection until it fails. connected reports whether the handshake succeeded.
func (f *Feed) listen(ctx context.Context, token string) (connected bool, err error) {
	u := f.wsURL + "?token=" + url.QueryEscape(token)
	conn, _, err := f.dialer.DialContext(ctx, u, nil)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		var msg feedMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return true, err
		}
		if msg.Event != "change" {
			continue
		}
		var ch models.Change
		if err := json.Unmarshal(msg.Data, &ch); err != nil {
			f.logger.Warn("malformed change", zap.Error(err))
			continue
		}
		f.apply(ch)
	}
}
