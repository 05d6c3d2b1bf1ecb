package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the agent.
type Config struct {
	// Binance USDT-M futures
	BinanceAPIKey    string
	BinanceAPISecret string
	BinanceTestnet   bool

	// Telegram operator channel
	TelegramToken  string
	TelegramChatID string

	// Symbols per strategy
	ScalpSymbols []string
	SwingSymbols []string

	// Fraction of the boot balance allocated to each strategy.
	// The remainder stays untouched as reserve.
	ScalpRatio float64
	SwingRatio float64

	DefaultLeverage int
	MarginType      string // ISOLATED or CROSSED

	// Circuit breaker
	MaxDrawdownPct    float64
	RiskCheckInterval time.Duration

	// Journal / logging
	JournalPath string
	LogFile     string
	LogLevel    string

	// Strategy parameter file (YAML); empty means compiled-in defaults.
	StrategyFile string
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the agent still starts when .env is missing.
	_ = godotenv.Load()

	return &Config{
		BinanceAPIKey:     os.Getenv("BINANCE_API_KEY"),
		BinanceAPISecret:  os.Getenv("BINANCE_API_SECRET"),
		BinanceTestnet:    getEnv("BINANCE_TESTNET", "false") == "true",
		TelegramToken:     os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID:    os.Getenv("TELEGRAM_CHAT_ID"),
		ScalpSymbols:      splitAndTrim(getEnv("SCALP_SYMBOLS", "BTCUSDT")),
		SwingSymbols:      splitAndTrim(getEnv("SWING_SYMBOLS", "ETHUSDT")),
		ScalpRatio:        getEnvFloat("SCALP_RATIO", 0.35),
		SwingRatio:        getEnvFloat("SWING_RATIO", 0.45),
		DefaultLeverage:   getEnvInt("DEFAULT_LEVERAGE", 10),
		MarginType:        getEnv("MARGIN_TYPE", "ISOLATED"),
		MaxDrawdownPct:    getEnvFloat("MAX_DRAWDOWN_PCT", 0.50),
		RiskCheckInterval: time.Duration(getEnvInt("RISK_CHECK_INTERVAL_SEC", 30)) * time.Second,
		JournalPath:       getEnv("JOURNAL_PATH", "./data/agent.db"),
		LogFile:           os.Getenv("LOG_FILE"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		StrategyFile:      getEnv("STRATEGY_FILE", "strategies.yaml"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitAndTrim(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
