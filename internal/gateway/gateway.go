// Package gateway is the sole boundary to the Binance USDT-M futures
// exchange. It wraps the REST client with rate limiting, bounded retry,
// and error classification, and owns the market-data websocket session.
// Failed operations alert once and return their documented empty value;
// they never propagate errors to trading loops.
package gateway

import (
	"context"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var log = logrus.WithField("component", "gateway")

// Alerter delivers operator notifications.
type Alerter interface {
	Sendf(format string, args ...any)
}

// OrderResult is what a successful submission returns: enough immediate
// fill detail to seed a position optimistically.
type OrderResult struct {
	OrderID       int64
	ClientOrderID string
	Symbol        string
	Status        string
	ExecutedQty   float64
	AvgFillPrice  float64 // weighted average over immediate partial fills
}

// Kline is one OHLCV candle.
type Kline struct {
	OpenTime time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// Config holds gateway construction parameters.
type Config struct {
	APIKey    string
	APISecret string
	Testnet   bool

	// REST pacing; Binance futures allows 2400 weight/min, stay well under.
	RequestsPerSecond float64
	Burst             int
}

// Client is the concrete gateway.
type Client struct {
	fc      *futures.Client
	limiter *rate.Limiter
	alert   Alerter
	stream  *marketStream
	sleep   sleeper
}

// New builds a gateway client and starts nothing; call StartMarketStream
// to begin streaming ticks for a symbol set.
func New(cfg Config, alert Alerter) *Client {
	if cfg.Testnet {
		futures.UseTestnet = true
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 20
	}
	return &Client{
		fc:      futures.NewClient(cfg.APIKey, cfg.APISecret),
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		alert:   alert,
		stream:  newMarketStream(cfg.Testnet),
		sleep:   defaultSleep,
	}
}

// StartMarketStream begins the reconnecting market websocket session for
// the given symbols. Ticker and trade reads are served from its cache.
func (c *Client) StartMarketStream(ctx context.Context, symbols []string) {
	c.stream.start(ctx, symbols)
}

// SubmitOrder places a market or limit order. Returns nil after the retry
// policy is exhausted or a terminal error is hit; the failure has already
// been alerted.
func (c *Client) SubmitOrder(ctx context.Context, symbol, side string, qty float64, orderType string, price float64, clientID string) *OrderResult {
	svc := c.fc.NewCreateOrderService().
		Symbol(symbol).
		Side(futures.SideType(side)).
		Quantity(formatQty(qty)).
		NewOrderResponseType(futures.NewOrderRespTypeRESULT)
	if clientID != "" {
		svc = svc.NewClientOrderID(clientID)
	}
	switch orderType {
	case "LIMIT":
		svc = svc.Type(futures.OrderTypeLimit).
			TimeInForce(futures.TimeInForceTypeGTC).
			Price(strconv.FormatFloat(price, 'f', -1, 64))
	default:
		svc = svc.Type(futures.OrderTypeMarket)
	}

	var res *futures.CreateOrderResponse
	ok := c.withRetry(ctx, "order "+symbol, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		res, err = svc.Do(ctx)
		return err
	})
	if !ok {
		return nil
	}

	out := &OrderResult{
		OrderID:       res.OrderID,
		ClientOrderID: res.ClientOrderID,
		Symbol:        res.Symbol,
		Status:        string(res.Status),
		ExecutedQty:   toFloat(res.ExecutedQuantity),
		AvgFillPrice:  toFloat(res.AvgPrice),
	}
	// Fall back to quote/base when the response omits the average price.
	if out.AvgFillPrice == 0 && out.ExecutedQty > 0 {
		out.AvgFillPrice = toFloat(res.CumQuote) / out.ExecutedQty
	}
	log.Infof("order %s %s qty=%.6f status=%s id=%d", symbol, side, qty, out.Status, out.OrderID)
	return out
}

// FetchBalance returns the free USDT balance. ok=false means the fetch
// failed after retries and has been alerted.
func (c *Client) FetchBalance(ctx context.Context) (float64, bool) {
	var balances []*futures.Balance
	ok := c.withRetry(ctx, "balance", func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		balances, err = c.fc.NewGetBalanceService().Do(ctx)
		return err
	})
	if !ok {
		return 0, false
	}
	for _, b := range balances {
		if b.Asset == "USDT" {
			return toFloat(b.AvailableBalance), true
		}
	}
	return 0, true
}

// ConfigureSymbol sets margin mode and leverage for a symbol. Each failed
// call alerts and moves on; an already-set margin mode is not an error
// worth stopping for.
func (c *Client) ConfigureSymbol(ctx context.Context, symbol string, leverage int, marginType string) {
	_ = c.limiter.Wait(ctx)
	if err := c.fc.NewChangeMarginTypeService().
		Symbol(symbol).
		MarginType(futures.MarginType(marginType)).
		Do(ctx); err != nil {
		c.alert.Sendf("[margin type failed] %s %v", symbol, err)
	}
	_ = c.limiter.Wait(ctx)
	if _, err := c.fc.NewChangeLeverageService().
		Symbol(symbol).
		Leverage(leverage).
		Do(ctx); err != nil {
		c.alert.Sendf("[leverage failed] %s %v", symbol, err)
	}
}

// Klines fetches OHLCV history. Returns nil after alerted failure.
func (c *Client) Klines(ctx context.Context, symbol, interval string, limit int) []Kline {
	var raw []*futures.Kline
	ok := c.withRetry(ctx, "klines "+symbol, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		raw, err = c.fc.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			Limit(limit).
			Do(ctx)
		return err
	})
	if !ok {
		return nil
	}
	out := make([]Kline, 0, len(raw))
	for _, k := range raw {
		out = append(out, Kline{
			OpenTime: time.UnixMilli(k.OpenTime),
			Open:     toFloat(k.Open),
			High:     toFloat(k.High),
			Low:      toFloat(k.Low),
			Close:    toFloat(k.Close),
			Volume:   toFloat(k.Volume),
		})
	}
	return out
}

// CreateListenKey obtains a user-data-stream session token.
func (c *Client) CreateListenKey(ctx context.Context) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return c.fc.NewStartUserStreamService().Do(ctx)
}

// KeepAliveListenKey renews the session token before expiry.
func (c *Client) KeepAliveListenKey(ctx context.Context, listenKey string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	return c.fc.NewKeepaliveUserStreamService().ListenKey(listenKey).Do(ctx)
}

// WatchTicker returns the latest streamed tick for a symbol.
// ok=false when no fresh tick is available.
func (c *Client) WatchTicker(symbol string) (Tick, bool) {
	return c.stream.lastTick(symbol)
}

// WatchTrades returns recent streamed trade prints for a symbol, newest
// last. Empty when the stream has nothing fresh.
func (c *Client) WatchTrades(symbol string) []Trade {
	return c.stream.recentTrades(symbol)
}

func formatQty(qty float64) string {
	return strconv.FormatFloat(qty, 'f', 6, 64)
}

func toFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
