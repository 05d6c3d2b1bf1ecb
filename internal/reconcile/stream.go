package reconcile

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

const (
	keepAliveInterval = 30 * time.Minute
	reconnectDelay    = 5 * time.Second
)

// SessionSource issues and renews user-data-stream session tokens.
type SessionSource interface {
	CreateListenKey(ctx context.Context) (string, error)
	KeepAliveListenKey(ctx context.Context, listenKey string) error
}

// Stream subscribes to the Binance futures user-data stream and feeds the
// reconciler. The connection is wrapped in a fixed-delay reconnect loop
// that only an external stop halts; each session runs a companion
// keepalive goroutine renewing the listen key until the session ends.
type Stream struct {
	source     SessionSource
	reconciler *Reconciler
	alert      Alerter
	testnet    bool
}

// NewStream builds the subscriber.
func NewStream(source SessionSource, reconciler *Reconciler, alert Alerter, testnet bool) *Stream {
	return &Stream{source: source, reconciler: reconciler, alert: alert, testnet: testnet}
}

// Run blocks until ctx is done, reconnecting forever in between.
func (s *Stream) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		listenKey, err := s.source.CreateListenKey(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.alert.Sendf("[user stream] listen key failed: %v", err)
			}
		} else {
			s.runSession(ctx, listenKey)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
			log.Info("user stream reconnecting")
		}
	}
}

func (s *Stream) runSession(ctx context.Context, listenKey string) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.buildURL(listenKey), nil)
	if err != nil {
		s.alert.Sendf("[user stream] dial failed: %v", err)
		return
	}
	defer conn.Close()
	log.Info("user stream connected")

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Keepalive companion; cancelled with the session.
	go func() {
		ticker := time.NewTicker(keepAliveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sessionCtx.Done():
				return
			case <-ticker.C:
				if err := s.source.KeepAliveListenKey(sessionCtx, listenKey); err != nil {
					log.WithError(err).Warn("listen key keepalive failed")
				}
			}
		}
	}()

	// Unblock ReadMessage when ctx ends.
	go func() {
		<-sessionCtx.Done()
		conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.WithError(err).Warn("user stream read error")
			}
			return
		}
		s.handleMessage(ctx, msg)
	}
}

func (s *Stream) buildURL(listenKey string) string {
	host := "fstream.binance.com"
	if s.testnet {
		host = "stream.binancefuture.com"
	}
	u := url.URL{Scheme: "wss", Host: host, Path: "/ws/" + listenKey}
	return u.String()
}

// handleMessage decodes the push envelope as a tagged variant over the two
// known event kinds. Events missing required fields are dropped, not
// guessed at.
func (s *Stream) handleMessage(ctx context.Context, msg []byte) {
	var head struct {
		Event string `json:"e"`
	}
	if err := json.Unmarshal(msg, &head); err != nil || head.Event == "" {
		return
	}

	switch head.Event {
	case "ORDER_TRADE_UPDATE":
		var wrap struct {
			Data struct {
				Symbol    string `json:"s"`
				Side      string `json:"S"`
				Status    string `json:"X"`
				OrderID   int64  `json:"i"`
				CumFilled string `json:"z"`
				OrigQty   string `json:"q"`
				AvgPrice  string `json:"ap"`
			} `json:"o"`
		}
		if err := json.Unmarshal(msg, &wrap); err != nil {
			log.WithError(err).Warn("order update parse error")
			return
		}
		d := wrap.Data
		if d.OrderID == 0 || d.Status == "" || d.Side == "" {
			return
		}
		s.reconciler.HandleOrderTrade(ctx, OrderTradeUpdate{
			OrderID:   d.OrderID,
			Symbol:    d.Symbol,
			Side:      d.Side,
			Status:    d.Status,
			CumFilled: toFloat(d.CumFilled),
			OrigQty:   toFloat(d.OrigQty),
			AvgPrice:  toFloat(d.AvgPrice),
		})

	case "ACCOUNT_UPDATE":
		s.reconciler.HandleAccountUpdate(string(msg))

	default:
		// ignore other events
	}
}

func toFloat(v string) float64 {
	f, _ := strconv.ParseFloat(v, 64)
	return f
}
