// Package ops loads and resolves runtime configuration for the adapter.
package ops

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/bytedance/sonic"

	"main/internal/gateway"
	"main/internal/options"
	"main/internal/recorder"
	"main/internal/risk"
)

// Environment overrides applied on top of the file config.
const (
	EnvHost     = "ADAPTER_HOST"
	EnvPort     = "ADAPTER_PORT"
	EnvClientID = "ADAPTER_CLIENT_ID"
)

// FileConfig mirrors the JSON config layout. Durations are expressed in
// milliseconds so the file stays plain numbers.
type FileConfig struct {
	Gateway    GatewayConfig    `json:"gateway"`
	Risk       RiskConfig       `json:"risk"`
	MarketData MarketDataConfig `json:"marketData"`
	Options    OptionsConfig    `json:"options"`
	Journal    JournalConfig    `json:"journal"`
	State      StateConfig      `json:"state"`
}

// GatewayConfig describes the broker gateway connection.
type GatewayConfig struct {
	Host                string  `json:"host"`
	Port                int     `json:"port"`
	ClientID            int     `json:"clientId"`
	ConnectTimeoutMs    int     `json:"connectTimeoutMs"`
	DisconnectTimeoutMs int     `json:"disconnectTimeoutMs"`
	AutoReconnect       *bool   `json:"autoReconnect"`
	MaxReconnects       int     `json:"maxReconnects"`
	BackoffMinMs        int     `json:"backoffMinMs"`
	BackoffMaxMs        int     `json:"backoffMaxMs"`
	BackoffFactor       float64 `json:"backoffFactor"`
	BackoffJitter       float64 `json:"backoffJitter"`
}

// RiskConfig describes pre-trade limits. Zero values disable a check.
type RiskConfig struct {
	KillSwitch           bool    `json:"killSwitch"`
	MaxOrderQty          float64 `json:"maxOrderQty"`
	MaxOrderNotional     float64 `json:"maxOrderNotional"`
	MaxPosition          float64 `json:"maxPosition"`
	OrderRateLimit       int     `json:"orderRateLimit"`
	OrderRateWindowMs    int     `json:"orderRateWindowMs"`
	MaxPriceDeviationBps float64 `json:"maxPriceDeviationBps"`
}

// MarketDataConfig describes market data request behavior.
type MarketDataConfig struct {
	HistoricalTimeoutMs int `json:"historicalTimeoutMs"`
}

// OptionsConfig describes option chain construction.
type OptionsConfig struct {
	StrikesPerSide int     `json:"strikesPerSide"`
	StrikeStep     float64 `json:"strikeStep"`
	RiskFreeRate   float64 `json:"riskFreeRate"`
	QuoteWaitMs    int     `json:"quoteWaitMs"`
}

// JournalConfig describes event journaling. An empty Dir disables it.
type JournalConfig struct {
	Dir             string `json:"dir"`
	SegmentMaxBytes int64  `json:"segmentMaxBytes"`
	FilePrefix      string `json:"filePrefix"`
}

// StateConfig describes position snapshot persistence.
type StateConfig struct {
	SnapshotPath string `json:"snapshotPath"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Gateway           gateway.Config
	Risk              risk.Config
	HistoricalTimeout time.Duration
	Options           options.Config
	Journal           recorder.Config
	JournalEnabled    bool
	SnapshotPath      string
}

// Load reads a JSON config file, applies environment overrides, and
// resolves defaults. An empty path yields a pure default config.
func Load(path string) (Loaded, error) {
	var cfg FileConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Loaded{}, err
		}
		if err := sonic.Unmarshal(data, &cfg); err != nil {
			return Loaded{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg.Gateway); err != nil {
		return Loaded{}, err
	}
	return resolve(cfg)
}

func applyEnv(cfg *GatewayConfig) error {
	if host := os.Getenv(EnvHost); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv(EnvPort); port != "" {
		v, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		cfg.Port = v
	}
	if clientID := os.Getenv(EnvClientID); clientID != "" {
		v, err := strconv.Atoi(clientID)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvClientID, err)
		}
		cfg.ClientID = v
	}
	return nil
}

func resolve(cfg FileConfig) (Loaded, error) {
	gw, err := resolveGateway(cfg.Gateway)
	if err != nil {
		return Loaded{}, err
	}

	loaded := Loaded{
		Gateway: gw,
		Risk: risk.Config{
			KillSwitch:           cfg.Risk.KillSwitch,
			MaxOrderQty:          cfg.Risk.MaxOrderQty,
			MaxOrderNotional:     cfg.Risk.MaxOrderNotional,
			MaxPosition:          cfg.Risk.MaxPosition,
			OrderRateLimit:       cfg.Risk.OrderRateLimit,
			OrderRateWindow:      time.Duration(cfg.Risk.OrderRateWindowMs) * time.Millisecond,
			MaxPriceDeviationBps: cfg.Risk.MaxPriceDeviationBps,
		},
		HistoricalTimeout: time.Duration(cfg.MarketData.HistoricalTimeoutMs) * time.Millisecond,
		Options: options.Config{
			StrikesPerSide: cfg.Options.StrikesPerSide,
			StrikeStep:     cfg.Options.StrikeStep,
			RiskFreeRate:   cfg.Options.RiskFreeRate,
			QuoteWait:      time.Duration(cfg.Options.QuoteWaitMs) * time.Millisecond,
		},
		SnapshotPath: cfg.State.SnapshotPath,
	}
	if loaded.HistoricalTimeout <= 0 {
		loaded.HistoricalTimeout = 10 * time.Second
	}

	if cfg.Journal.Dir != "" {
		journal := recorder.DefaultConfig(cfg.Journal.Dir)
		if cfg.Journal.SegmentMaxBytes > 0 {
			journal.SegmentMaxBytes = cfg.Journal.SegmentMaxBytes
		}
		if cfg.Journal.FilePrefix != "" {
			journal.FilePrefix = cfg.Journal.FilePrefix
		}
		loaded.Journal = journal
		loaded.JournalEnabled = true
	}
	return loaded, nil
}

func resolveGateway(cfg GatewayConfig) (gateway.Config, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 7496
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return gateway.Config{}, fmt.Errorf("invalid gateway port: %d", cfg.Port)
	}
	if cfg.ClientID == 0 {
		cfg.ClientID = 1
	}
	if cfg.ClientID < 0 {
		return gateway.Config{}, fmt.Errorf("invalid gateway clientId: %d", cfg.ClientID)
	}

	backoff := gateway.DefaultBackoff()
	if cfg.BackoffMinMs > 0 {
		backoff.Min = time.Duration(cfg.BackoffMinMs) * time.Millisecond
	}
	if cfg.BackoffMaxMs > 0 {
		backoff.Max = time.Duration(cfg.BackoffMaxMs) * time.Millisecond
	}
	if cfg.BackoffFactor > 0 {
		backoff.Factor = cfg.BackoffFactor
	}
	if cfg.BackoffJitter > 0 {
		backoff.Jitter = cfg.BackoffJitter
	}
	if backoff.Max < backoff.Min {
		return gateway.Config{}, fmt.Errorf("gateway backoff max %s < min %s", backoff.Max, backoff.Min)
	}

	autoReconnect := true
	if cfg.AutoReconnect != nil {
		autoReconnect = *cfg.AutoReconnect
	}

	return gateway.Config{
		Host:              cfg.Host,
		Port:              cfg.Port,
		ClientID:          cfg.ClientID,
		ConnectTimeout:    time.Duration(cfg.ConnectTimeoutMs) * time.Millisecond,
		DisconnectTimeout: time.Duration(cfg.DisconnectTimeoutMs) * time.Millisecond,
		Backoff:           backoff,
		AutoReconnect:     autoReconnect,
		MaxReconnects:     cfg.MaxReconnects,
	}, nil
}
