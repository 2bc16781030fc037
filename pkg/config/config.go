package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"AutoTrader/pkg/util"
)

type Config struct {
	Environment string   `yaml:"environment" default:"development" validate:"required"`
	Pairs       []string `yaml:"pairs"`
	Quote       string   `yaml:"quote" default:"USDT" validate:"required"`

	Log struct {
		Level      string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format     string `yaml:"format" default:"json" validate:"oneof=json console"`
		Output     string `yaml:"output" default:"stdout"`
		TimeFormat string `yaml:"time_format"`
		Collector  struct {
			Enabled       bool          `yaml:"enabled"`
			Topic         string        `yaml:"topic" default:"autotrader.log-digest"`
			FlushInterval time.Duration `yaml:"flush_interval" default:"30s"`
			MaxEntries    int           `yaml:"max_entries" default:"100" validate:"gt=0"`
			IncludeWarn   bool          `yaml:"include_warn"`
		} `yaml:"collector"`
	} `yaml:"log"`

	Server struct {
		Enabled         bool          `yaml:"enabled" default:"true"`
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080" validate:"gt=0,lt=65536"`
		CORS            bool          `yaml:"cors" default:"true"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CycleTriggerRPS float64       `yaml:"cycle_trigger_rps" default:"0.2" validate:"gt=0"`
		CandlesCacheTTL time.Duration `yaml:"candles_cache_ttl" default:"30s"`
		// OperatorSecret signs the HS256 tokens required by the POST routes.
		// Empty leaves them open.
		OperatorSecret   string        `yaml:"operator_secret"`
		OperatorTokenTTL time.Duration `yaml:"operator_token_ttl" default:"24h" validate:"gt=0"`
	} `yaml:"server"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`

	Engine EngineConfig `yaml:"engine"`
	Modes  ModesConfig  `yaml:"modes"`

	Scheduler struct {
		Interval     time.Duration `yaml:"interval" default:"15m" validate:"gt=0"`
		RunOnStart   bool          `yaml:"run_on_start" default:"true"`
		Workers      int           `yaml:"workers" default:"4" validate:"gt=0"`
		CycleTimeout time.Duration `yaml:"cycle_timeout" default:"10m" validate:"gt=0"`
	} `yaml:"scheduler"`

	Candles struct {
		Source         string        `yaml:"source" default:"exchange" validate:"oneof=exchange clickhouse"`
		Exchanges      []string      `yaml:"exchanges"`
		RequestTimeout time.Duration `yaml:"request_timeout" default:"10s"`
		Retries        int           `yaml:"retries" default:"2" validate:"gte=0"`
		Throttle       time.Duration `yaml:"throttle" default:"800ms"`
		Archive        bool          `yaml:"archive"`
		Cache          struct {
			Enabled bool          `yaml:"enabled" default:"true"`
			TTL     time.Duration `yaml:"ttl" default:"5m"`
		} `yaml:"cache"`
	} `yaml:"candles"`

	Sinks struct {
		File struct {
			Enabled bool   `yaml:"enabled" default:"true"`
			Path    string `yaml:"path" default:"data/entrada.json"`
		} `yaml:"file"`
		Kafka      bool `yaml:"kafka"`
		ClickHouse bool `yaml:"clickhouse"`
		Board      bool `yaml:"board" default:"true"`
	} `yaml:"sinks"`

	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		SignalTopic  string   `yaml:"signal_topic" default:"autotrader.signals"`
		RequiredAcks int      `yaml:"required_acks" default:"1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"10ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`

	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"autotrader"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		MaxOpenConns     int           `yaml:"max_open_conns" default:"10"`
		MaxIdleConns     int           `yaml:"max_idle_conns" default:"5"`
		ConnMaxLifetime  time.Duration `yaml:"conn_max_lifetime" default:"5m"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`

	Redis struct {
		Enabled   bool   `yaml:"enabled"`
		Addr      string `yaml:"addr" default:"localhost:6379"`
		Password  string `yaml:"password"`
		DB        int    `yaml:"db"`
		KeyPrefix string `yaml:"key_prefix" default:"autotrader"`
		PoolSize  int    `yaml:"pool_size" default:"10" validate:"gte=1"`
		MinIdle   int    `yaml:"min_idle_conns" default:"2"`
		// in-process layer in front of Redis
		L1Size int           `yaml:"l1_size" default:"1000" validate:"gte=1"`
		L1TTL  time.Duration `yaml:"l1_ttl" default:"30s" validate:"gt=0"`
	} `yaml:"redis"`

	PriceStream struct {
		Enabled        bool          `yaml:"enabled"`
		URL            string        `yaml:"url" default:"wss://ws.okx.com:8443/ws/v5/public"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"20s"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
		MinInterval    time.Duration `yaml:"min_interval" default:"2s"`
	} `yaml:"price_stream"`
}

// EngineConfig holds the knobs of the decision pipeline. One set per deployment.
type EngineConfig struct {
	FastEMA    int  `yaml:"fast_ema" default:"9" validate:"gt=0"`
	SlowEMA    int  `yaml:"slow_ema" default:"21" validate:"gt=0"`
	ATRLen     int  `yaml:"atr_len" default:"14" validate:"gt=0"`
	ADXLen     int  `yaml:"adx_len" default:"14" validate:"gt=0"`
	UseADX     bool `yaml:"use_adx" default:"true"`
	MarginBars int  `yaml:"margin_bars" default:"5" validate:"gte=0"`

	PriceDecimals int    `yaml:"price_decimals" default:"3" validate:"gte=0,lte=12"`
	PctDecimals   int    `yaml:"pct_decimals" default:"2" validate:"gte=0,lte=8"`
	Timezone      string `yaml:"timezone" default:"America/Sao_Paulo"`

	TargetStrategy string  `yaml:"target_strategy" default:"atr_multiple" validate:"oneof=atr_multiple swing_fibonacci"`
	Scorer         string  `yaml:"scorer" default:"adx_alignment" validate:"oneof=adx_alignment change_reinforced"`
	ATRPctMin      float64 `yaml:"atr_pct_min" default:"0.5" validate:"gt=0"`
	ATRPctMax      float64 `yaml:"atr_pct_max" default:"15" validate:"gt=0"`

	Confidence struct {
		Min float64 `yaml:"min" default:"60" validate:"gte=0,lte=100"`
		Max float64 `yaml:"max" default:"90" validate:"gte=0,lte=100"`
	} `yaml:"confidence"`

	Fibonacci struct {
		Lookback int       `yaml:"lookback" default:"40" validate:"gt=1"`
		Ratios   []float64 `yaml:"ratios" default:"[0.382,0.618,1.0]" validate:"min=1,dive,gt=0"`
	} `yaml:"fibonacci"`

	Filter struct {
		MinGainPct     float64 `yaml:"min_gain_pct" default:"3" validate:"gte=0"`
		MinConfidence  float64 `yaml:"min_confidence" default:"65" validate:"gte=0,lte=100"`
		FilteredFields string  `yaml:"filtered_fields" default:"keep" validate:"oneof=keep zero"`
	} `yaml:"filter"`

	Skipped string `yaml:"skipped" default:"omit" validate:"oneof=omit placeholder"`
}

type ModeConfig struct {
	Timeframe        string  `yaml:"timeframe" validate:"required"`
	CandleLimit      int     `yaml:"candle_limit" validate:"gt=0"`
	TargetMultiplier float64 `yaml:"target_multiplier" validate:"gt=0"`
	ConfidenceBase   float64 `yaml:"confidence_base" validate:"gte=0,lte=100"`
	MinGainPct       float64 `yaml:"min_gain_pct" validate:"gte=0"`
	MaxGainPct       float64 `yaml:"max_gain_pct" validate:"gt=0,lt=100"`
	ChangeWindow     int     `yaml:"change_window" validate:"gte=0"`
}

type ModesConfig struct {
	Swing      ModeConfig `yaml:"swing"`
	Positional ModeConfig `yaml:"positional"`
}

// SetDefaults fills the reference SWING and POSITIONAL profiles.
func (m *ModesConfig) SetDefaults() {
	fill := func(dst *ModeConfig, ref ModeConfig) {
		if dst.Timeframe == "" {
			dst.Timeframe = ref.Timeframe
		}
		if dst.CandleLimit == 0 {
			dst.CandleLimit = ref.CandleLimit
		}
		if dst.TargetMultiplier == 0 {
			dst.TargetMultiplier = ref.TargetMultiplier
		}
		if dst.ConfidenceBase == 0 {
			dst.ConfidenceBase = ref.ConfidenceBase
		}
		if dst.MinGainPct == 0 {
			dst.MinGainPct = ref.MinGainPct
		}
		if dst.MaxGainPct == 0 {
			dst.MaxGainPct = ref.MaxGainPct
		}
		if dst.ChangeWindow == 0 {
			dst.ChangeWindow = ref.ChangeWindow
		}
	}
	fill(&m.Swing, ModeConfig{Timeframe: "4h", CandleLimit: 120, TargetMultiplier: 1.2, ConfidenceBase: 68, MinGainPct: 3, MaxGainPct: 30, ChangeWindow: 6})
	fill(&m.Positional, ModeConfig{Timeframe: "1d", CandleLimit: 120, TargetMultiplier: 2.0, ConfidenceBase: 72, MinGainPct: 3, MaxGainPct: 30, ChangeWindow: 2})
}

// DefaultPairs is the official coin list of the production deployment.
var DefaultPairs = []string{
	"AAVE", "ADA", "APT", "ARB", "ATOM", "AVAX", "AXS", "BCH", "BNB", "BTC",
	"DOGE", "DOT", "ETH", "FET", "FIL", "FLUX", "ICP", "INJ", "LDO", "LINK",
	"LTC", "NEAR", "OP", "PEPE", "POL", "RATS", "RENDER", "RUNE", "SEI", "SHIB",
	"SOL", "SUI", "TIA", "TNSR", "TON", "TRX", "UNI", "WIF", "XRP",
}

// SetDefaults runs after the tag defaults.
func (c *Config) SetDefaults() {
	if len(c.Pairs) == 0 {
		c.Pairs = append([]string(nil), DefaultPairs...)
	}
	if len(c.Candles.Exchanges) == 0 {
		c.Candles.Exchanges = []string{"kucoin", "gateio", "okx"}
	}
}

var validate = validator.New()

// Default returns a configuration with every default applied.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Parse decodes YAML over the defaults. Callers run Validate.
func Parse(b []byte) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// yaml may have emptied slices or left new zero fields behind
	c.SetDefaults()
	c.Modes.SetDefaults()
	return c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c, err := Parse(b)
	if err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads .env (if present), the YAML file, then applies
// environment overrides before validating.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := Parse(b)
	if err != nil {
		return nil, err
	}

	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("APP_ENV"); v != "" {
		c.Environment = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("PAIRS"); v != "" {
		c.Pairs = util.SplitCSV(v)
	}
	if v := getenv("TARGET_STRATEGY"); v != "" {
		c.Engine.TargetStrategy = v
	}
	if v := getenv("SIGNALS_FILE"); v != "" {
		c.Sinks.File.Path = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitCSV(v)
	}
	if v := getenv("KAFKA_SIGNAL_TOPIC"); v != "" {
		c.Kafka.SignalTopic = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := getenv("OPERATOR_SECRET"); v != "" {
		c.Server.OperatorSecret = v
	}
	if v := getenv("SERVER_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SERVER_PORT: %w", err)
		}
		c.Server.Port = p
	}
	return nil
}

// Validate checks tag rules first, then cross-field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if len(c.Pairs) == 0 {
		return fmt.Errorf("pairs cannot be empty")
	}
	e := c.Engine
	if e.FastEMA >= e.SlowEMA {
		return fmt.Errorf("engine.fast_ema (%d) must be shorter than engine.slow_ema (%d)", e.FastEMA, e.SlowEMA)
	}
	if e.Confidence.Min > e.Confidence.Max {
		return fmt.Errorf("engine.confidence.min (%.2f) exceeds max (%.2f)", e.Confidence.Min, e.Confidence.Max)
	}
	if e.ATRPctMin > e.ATRPctMax {
		return fmt.Errorf("engine.atr_pct_min (%.2f) exceeds atr_pct_max (%.2f)", e.ATRPctMin, e.ATRPctMax)
	}
	for name, m := range map[string]ModeConfig{"swing": c.Modes.Swing, "positional": c.Modes.Positional} {
		if m.MinGainPct > m.MaxGainPct {
			return fmt.Errorf("modes.%s: min_gain_pct (%.2f) exceeds max_gain_pct (%.2f)", name, m.MinGainPct, m.MaxGainPct)
		}
		if !isTimeframe(m.Timeframe) {
			return fmt.Errorf("modes.%s: unsupported timeframe %q", name, m.Timeframe)
		}
	}
	for _, ex := range c.Candles.Exchanges {
		switch ex {
		case "kucoin", "gateio", "okx":
		default:
			return fmt.Errorf("candles.exchanges: unknown exchange %q", ex)
		}
	}
	if (c.Sinks.Kafka || c.Log.Collector.Enabled) && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka publishing is enabled")
	}
	if c.Sinks.File.Enabled && c.Sinks.File.Path == "" {
		return fmt.Errorf("sinks.file.path is required")
	}
	return nil
}

func isTimeframe(tf string) bool {
	switch tf {
	case "1h", "2h", "4h", "6h", "12h", "1d", "1w":
		return true
	}
	return false
}
