package strategy

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that parses Go duration strings ("3s",
// "500ms") from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	dur, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(dur)
	return nil
}

// ScalperParams tunes the fast intraday strategy.
type ScalperParams struct {
	Timeframe       string    `yaml:"timeframe"`
	Lookback        int       `yaml:"lookback"`
	VolFilter       float64   `yaml:"vol_filter"`
	TickMomentum    float64   `yaml:"tick_momentum"`
	PartialTPLevels []float64 `yaml:"partial_tp_levels"`
	PartialTPRatio  float64   `yaml:"partial_tp_ratio"`
	StopLossPct     float64   `yaml:"stop_loss"`
	PyramidLevels   []float64 `yaml:"pyramid_levels"`
	PyramidRatio    float64   `yaml:"pyramid_ratio"`
	EntryFraction   float64   `yaml:"entry_fraction"`
	TickInterval    Duration  `yaml:"tick_interval"`
}

// SwingParams tunes the multi-hour strategy.
type SwingParams struct {
	Lookback        int       `yaml:"lookback"`
	VolFilter       float64   `yaml:"vol_filter"`
	PartialTPLevels []float64 `yaml:"partial_tp_levels"`
	PartialTPRatio  float64   `yaml:"partial_tp_ratio"`
	StopLossPct     float64   `yaml:"stop_loss"`
	TrailPct        float64   `yaml:"trail_stop"`
	EntryFraction   float64   `yaml:"entry_fraction"`
	TickInterval    Duration  `yaml:"tick_interval"`
}

// Params is the top-level strategies.yaml structure.
type Params struct {
	Scalper ScalperParams `yaml:"scalper"`
	Swing   SwingParams   `yaml:"swing"`
}

// DefaultParams returns the reference parameter set.
func DefaultParams() Params {
	return Params{
		Scalper: ScalperParams{
			Timeframe:       "3m",
			Lookback:        10,
			VolFilter:       1.3,
			TickMomentum:    2.0,
			PartialTPLevels: []float64{0.02, 0.04},
			PartialTPRatio:  0.3,
			StopLossPct:     0.015,
			PyramidLevels:   []float64{0.01, 0.02},
			PyramidRatio:    0.5,
			EntryFraction:   0.1,
			TickInterval:    Duration(time.Second),
		},
		Swing: SwingParams{
			Lookback:        15,
			VolFilter:       1.3,
			PartialTPLevels: []float64{0.05, 0.10},
			PartialTPRatio:  0.3,
			StopLossPct:     0.05,
			TrailPct:        0.03,
			EntryFraction:   0.3,
			TickInterval:    Duration(3 * time.Second),
		},
	}
}

// LoadParams reads strategies.yaml over the defaults. A missing file is
// not an error; malformed YAML is.
func LoadParams(path string) (Params, error) {
	params := DefaultParams()
	if path == "" {
		return params, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return params, nil
		}
		return params, fmt.Errorf("read strategy params: %w", err)
	}
	if err := yaml.Unmarshal(data, &params); err != nil {
		return params, fmt.Errorf("parse strategy params: %w", err)
	}
	return params, nil
}
