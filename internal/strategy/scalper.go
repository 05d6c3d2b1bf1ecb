package strategy

import (
	"context"
	"sync"
	"time"

	"github.com/eosang60/futures-bot-binance-third/internal/gateway"
	"github.com/eosang60/futures-bot-binance-third/internal/indicators"
	"github.com/eosang60/futures-bot-binance-third/internal/position"
)

// Scalper is the fast intraday engine: short-timeframe breakout with a
// higher-timeframe trend filter, an RSI overbought guard, and a trade-flow
// momentum spike test. It pyramids into winners and exits on a hard stop;
// the high watermark is tracked but never triggers an exit on its own.
type Scalper struct {
	data    MarketData
	params  ScalperParams
	machine *position.Machine
	balance float64

	mu         sync.Mutex
	avgTickVol map[string]float64
}

// NewScalper builds the engine with its allocated balance slice.
func NewScalper(data MarketData, params ScalperParams, trader position.Trader, alert position.Alerter, balance float64) *Scalper {
	rules := position.Rules{
		PartialTPLevels: params.PartialTPLevels,
		PartialTPRatio:  params.PartialTPRatio,
		PyramidLevels:   params.PyramidLevels,
		PyramidRatio:    params.PyramidRatio,
		StopLossPct:     params.StopLossPct,
		TrailPct:        0, // watermark only
	}
	return &Scalper{
		data:       data,
		params:     params,
		machine:    position.NewMachine(NameScalp, rules, trader, alert),
		balance:    balance,
		avgTickVol: make(map[string]float64),
	}
}

func (s *Scalper) Name() string               { return NameScalp }
func (s *Scalper) Interval() time.Duration    { return time.Duration(s.params.TickInterval) }
func (s *Scalper) Machine() *position.Machine { return s.machine }
func (s *Scalper) EntryQty(price float64) float64 {
	return s.balance * s.params.EntryFraction / price
}

// CheckEntry evaluates the full entry gauntlet. Order matters: the cheap
// higher-timeframe filter first, the websocket-fed momentum test last.
func (s *Scalper) CheckEntry(ctx context.Context, symbol string, price float64) bool {
	if !s.trendOK(ctx, symbol) {
		return false
	}
	if !s.breakoutOK(ctx, symbol, price) {
		return false
	}
	if !s.oscillatorOK(ctx, symbol) {
		return false
	}
	return s.tickMomentumOK(symbol)
}

// trendOK checks the 15m picture: EMA20 above EMA60 with RSI not yet
// overbought, or an outright +2% move over the last two candles.
func (s *Scalper) trendOK(ctx context.Context, symbol string) bool {
	klines := s.data.Klines(ctx, symbol, "15m", 60)
	if len(klines) < 60 {
		return false
	}
	closes := closePrices(klines)
	e20 := indicators.Last(indicators.EMA(closes, 20))
	e60 := indicators.Last(indicators.EMA(closes, 60))
	rsi15 := indicators.Last(indicators.RSI(closes, 14))
	change := closes[len(closes)-1]/closes[len(closes)-2] - 1

	return (e20 > e60 && rsi15 < 70) || change >= 0.02
}

// breakoutOK requires price above the recent high with volume beating the
// lookback average by the configured multiple.
func (s *Scalper) breakoutOK(ctx context.Context, symbol string, price float64) bool {
	klines := s.data.Klines(ctx, symbol, s.params.Timeframe, s.params.Lookback+5)
	if len(klines) < s.params.Lookback {
		return false
	}
	recent := klines[len(klines)-s.params.Lookback:]

	high := recent[0].High
	var volSum float64
	for _, k := range recent {
		if k.High > high {
			high = k.High
		}
		volSum += k.Volume
	}
	if price <= high {
		return false
	}
	lastVol := klines[len(klines)-1].Volume
	avgVol := volSum / float64(len(recent))
	return lastVol >= avgVol*s.params.VolFilter
}

func (s *Scalper) oscillatorOK(ctx context.Context, symbol string) bool {
	klines := s.data.Klines(ctx, symbol, s.params.Timeframe, 35)
	if len(klines) == 0 {
		return false
	}
	rsi := indicators.Last(indicators.RSI(closePrices(klines), 14))
	return rsi < 70
}

// tickMomentumOK compares the trailing 30s traded volume against an
// exponentially decayed running average. The first observation only seeds
// the average and never fires.
func (s *Scalper) tickMomentumOK(symbol string) bool {
	trades := s.data.WatchTrades(symbol)
	if len(trades) == 0 {
		return false
	}

	cutoff := time.Now().Add(-30 * time.Second)
	var recentVol float64
	for i := len(trades) - 1; i >= 0; i-- {
		if trades[i].Time.Before(cutoff) {
			break
		}
		recentVol += trades[i].Qty
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	avg := s.avgTickVol[symbol]
	if avg < 1e-9 {
		s.avgTickVol[symbol] = recentVol
		return false
	}
	ratio := recentVol / (avg + 1e-9)
	s.avgTickVol[symbol] = avg*0.8 + recentVol*0.2
	return ratio >= s.params.TickMomentum
}

func closePrices(klines []gateway.Kline) []float64 {
	out := make([]float64, len(klines))
	for i, k := range klines {
		out[i] = k.Close
	}
	return out
}
