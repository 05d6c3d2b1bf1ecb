package strategy

import (
	"context"
	"time"

	"github.com/eosang60/futures-bot-binance-third/internal/indicators"
	"github.com/eosang60/futures-bot-binance-third/internal/position"
)

// Swing is the slower engine: a 1h trend filter combined with a 15m
// breakout-with-volume filter. No pyramiding; it rides winners with a
// trailing stop instead.
type Swing struct {
	data    MarketData
	params  SwingParams
	machine *position.Machine
	balance float64
}

// NewSwing builds the engine with its allocated balance slice.
func NewSwing(data MarketData, params SwingParams, trader position.Trader, alert position.Alerter, balance float64) *Swing {
	rules := position.Rules{
		PartialTPLevels: params.PartialTPLevels,
		PartialTPRatio:  params.PartialTPRatio,
		StopLossPct:     params.StopLossPct,
		TrailPct:        params.TrailPct,
	}
	return &Swing{
		data:    data,
		params:  params,
		machine: position.NewMachine(NameSwing, rules, trader, alert),
		balance: balance,
	}
}

func (s *Swing) Name() string               { return NameSwing }
func (s *Swing) Interval() time.Duration    { return time.Duration(s.params.TickInterval) }
func (s *Swing) Machine() *position.Machine { return s.machine }
func (s *Swing) EntryQty(price float64) float64 {
	return s.balance * s.params.EntryFraction / price
}

// CheckEntry requires both the 1h trend and the 15m breakout to hold.
func (s *Swing) CheckEntry(ctx context.Context, symbol string, price float64) bool {
	return s.trendOK(ctx, symbol) && s.breakoutOK(ctx, symbol, price)
}

// trendOK checks the 1h picture: EMA20 above EMA60 with a positive MACD
// line, or an outright +2% move over the last two candles.
func (s *Swing) trendOK(ctx context.Context, symbol string) bool {
	klines := s.data.Klines(ctx, symbol, "1h", 60)
	if len(klines) < 20 {
		return false
	}
	closes := closePrices(klines)

	e20 := indicators.Last(indicators.EMA(closes, 20))
	e60 := e20
	if len(closes) >= 60 {
		e60 = indicators.Last(indicators.EMA(closes, 60))
	}
	macdLine := indicators.Last(indicators.MACD(closes, 12, 26, 9).Line)
	change := closes[len(closes)-1]/closes[len(closes)-2] - 1

	return (e20 > e60 && macdLine > 0) || change >= 0.02
}

func (s *Swing) breakoutOK(ctx context.Context, symbol string, price float64) bool {
	klines := s.data.Klines(ctx, symbol, "15m", s.params.Lookback+5)
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
