package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"StockPilot/pkg/logger"
	"StockPilot/pkg/util"
)

// DefaultUniverse is the instrument set scheduled when ingestion.universe is empty.
var DefaultUniverse = []string{
	"NVDA", "AAPL", "MSFT", "GOOGL", "META", "TSLA", "LLY", "UNH",
	"WMT", "INTC", "PEP", "GE", "GEV", "ORCL", "DIS", "LEU",
	"NFLX", "CRM", "JNJ", "NVO", "KO", "AMZN", "PG", "V",
}

// ErrMissingBucket is returned when the object storage destination is not configured.
var ErrMissingBucket = errors.New("storage destination is not configured")

type Config struct {
	Environment string        `yaml:"environment" default:"development" validate:"required"`
	Log         logger.Config `yaml:"log"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"min=1,max=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"15s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"20s"`
		RateLimit       struct {
			Capacity     float64 `yaml:"capacity" default:"20"`
			RefillPerSec float64 `yaml:"refill_per_sec" default:"10"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Ingestion struct {
		Universe    []string      `yaml:"universe"`
		Period      string        `yaml:"period" default:"1d" validate:"required"`
		Interval    string        `yaml:"interval" default:"1m" validate:"required"`
		Concurrency int           `yaml:"concurrency" default:"4" validate:"min=1,max=64"`
		Schedule    string        `yaml:"schedule" default:"*/10 * * * *"`
		ScheduleOff bool          `yaml:"schedule_off"`
		RunLockTTL  time.Duration `yaml:"run_lock_ttl" default:"9m"`
		OHLCPolicy  string        `yaml:"ohlc_policy" default:"reject" validate:"oneof=reject flag"`
		Retry       struct {
			MaxAttempts int           `yaml:"max_attempts" default:"3" validate:"min=1,max=10"`
			BaseDelay   time.Duration `yaml:"base_delay" default:"500ms"`
			MaxDelay    time.Duration `yaml:"max_delay" default:"5s"`
		} `yaml:"retry"`
	} `yaml:"ingestion"`
	Provider struct {
		ChartURL      string        `yaml:"chart_url" default:"https://query1.finance.yahoo.com/v8/finance/chart" validate:"required,url"`
		SearchURL     string        `yaml:"search_url" default:"https://query2.finance.yahoo.com/v1/finance/search" validate:"required,url"`
		UserAgent     string        `yaml:"user_agent" default:"Mozilla/5.0 (compatible; StockPilot/1.0)"`
		Timeout       time.Duration `yaml:"timeout" default:"15s"`
		RatePerSecond float64       `yaml:"rate_per_second" default:"2"`
		Burst         int           `yaml:"burst" default:"4"`
		MetadataTTL   time.Duration `yaml:"metadata_ttl" default:"24h"`
	} `yaml:"provider"`
	Storage struct {
		Backend          string `yaml:"backend" default:"gcs" validate:"oneof=gcs fs"`
		Bucket           string `yaml:"bucket"`
		Root             string `yaml:"root" default:"./data"`
		WriteConcurrency int    `yaml:"write_concurrency" default:"4" validate:"min=1"`
	} `yaml:"storage"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"stockpilot"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Brokers     []string `yaml:"brokers"`
		Compression string   `yaml:"compression" default:"gzip"`
		Topics      struct {
			Partitions string `yaml:"partitions" default:"bars.partition_written"`
			Logs       string `yaml:"logs" default:"stockpilot.logs"`
		} `yaml:"topics"`
		Producer struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"100ms"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		} `yaml:"producer"`
		Consumer struct {
			Disabled   bool          `yaml:"disabled"`
			GroupID    string        `yaml:"group_id" default:"stockpilot-loader"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"64"`
			RetryMax   int           `yaml:"retry_max" default:"5"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"500ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"30s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"bars.partition_written.dlq"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Cache struct {
		Prefix         string        `yaml:"prefix" default:"stockpilot"`
		MaxSize        int           `yaml:"max_size" default:"10000"`
		PriceTTL       time.Duration `yaml:"price_ttl" default:"30s"`
		HistoryTTL     time.Duration `yaml:"history_ttl" default:"5m"`
		VolumeTTL      time.Duration `yaml:"volume_ttl" default:"5m"`
		TrendTTL       time.Duration `yaml:"trend_ttl" default:"5m"`
		SignalsTTL     time.Duration `yaml:"signals_ttl" default:"1m"`
		InstrumentsTTL time.Duration `yaml:"instruments_ttl" default:"5m"`
	} `yaml:"cache"`
	Signals struct {
		FastPeriod      int     `yaml:"fast_period" default:"9" validate:"min=1"`
		SlowPeriod      int     `yaml:"slow_period" default:"21" validate:"gtfield=FastPeriod"`
		VolumePeriod    int     `yaml:"volume_period" default:"20" validate:"min=1"`
		HighVolumeRatio float64 `yaml:"high_volume_ratio" default:"1.5"`
		LowVolumeRatio  float64 `yaml:"low_volume_ratio" default:"0.5"`
		LevelPeriod     int     `yaml:"level_period" default:"20" validate:"min=1"`
		LevelProximity  float64 `yaml:"level_proximity" default:"0.02"`
		ShortThreshold  float64 `yaml:"short_threshold" default:"0.03"`
		MediumPeriod    int     `yaml:"medium_period" default:"5" validate:"min=1"`
		MediumThreshold float64 `yaml:"medium_threshold" default:"0.05"`
		HistoryBars     int     `yaml:"history_bars" default:"60" validate:"min=1"`
	} `yaml:"signals"`
	Queue struct {
		Workers    int           `yaml:"workers" default:"1"`
		RetryLimit int           `yaml:"retry_limit" default:"2"`
		RetryDelay time.Duration `yaml:"retry_delay" default:"30s"`
		KeyPrefix  string        `yaml:"key_prefix" default:"stockpilot:queue"`
	} `yaml:"queue"`
}

// Load reads a YAML file and applies struct defaults. A missing path yields a
// config built from defaults alone.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if len(c.Ingestion.Universe) == 0 {
		c.Ingestion.Universe = append([]string(nil), DefaultUniverse...)
	}
	return &c, nil
}

// LoadWithEnv loads the YAML file, an optional .env file, environment
// overrides, and validates the result.
func LoadWithEnv(path string, envFiles ...string) (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load(envFiles...)

	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("STOCKPILOT_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("BUCKET_NAME"); v != "" {
		c.Storage.Bucket = v
	}
	if v := os.Getenv("STOCKPILOT_STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("STOCKPILOT_STORAGE_ROOT"); v != "" {
		c.Storage.Root = v
	}
	if v := os.Getenv("STOCKPILOT_SYMBOLS"); v != "" {
		c.Ingestion.Universe = util.SplitList(v)
	}
	if v := os.Getenv("STOCKPILOT_PERIOD"); v != "" {
		c.Ingestion.Period = v
	}
	if v := os.Getenv("STOCKPILOT_INTERVAL"); v != "" {
		c.Ingestion.Interval = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitList(v)
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("STOCKPILOT_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

var validate = validator.New()

// Validate checks struct constraints plus the cross-field rules the tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if err := c.StorageDestination(); err != nil {
		return err
	}
	if len(c.Ingestion.Universe) == 0 {
		return fmt.Errorf("ingestion.universe cannot be empty")
	}
	if c.Signals.LowVolumeRatio >= c.Signals.HighVolumeRatio {
		return fmt.Errorf("signals.low_volume_ratio must be below signals.high_volume_ratio")
	}
	return nil
}

// StorageDestination reports ErrMissingBucket when the selected backend has no target.
func (c *Config) StorageDestination() error {
	switch c.Storage.Backend {
	case "gcs":
		if strings.TrimSpace(c.Storage.Bucket) == "" {
			return fmt.Errorf("storage.bucket: %w", ErrMissingBucket)
		}
	case "fs":
		if strings.TrimSpace(c.Storage.Root) == "" {
			return fmt.Errorf("storage.root: %w", ErrMissingBucket)
		}
	}
	return nil
}
