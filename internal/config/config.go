// Package config загружает настройки сервисов claimflow.
//
// Источники по возрастанию приоритета: значения по умолчанию,
// claimflow.yaml (необязателен), переменные окружения.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config: настройки всех бинарников.
type Config struct {
	Database struct {
		URL      string `mapstructure:"url"`
		MaxConns int32  `mapstructure:"max_conns"`
	} `mapstructure:"database"`

	RabbitMQ struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"rabbitmq"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	API struct {
		Port int `mapstructure:"port"`

		// BaseURL: адрес status API для CLI.
		BaseURL string `mapstructure:"base_url"`
	} `mapstructure:"api"`

	Pipeline PipelineConfig `mapstructure:"pipeline"`

	Notifier struct {
		// Port: порт /healthz и /metrics.
		Port int `mapstructure:"port"`
	} `mapstructure:"notifier"`
}

// PipelineConfig: настройки claimflow-pipeline и шагов.
type PipelineConfig struct {
	// Cron: расписание прохода конвейера (robfig/cron, 5 полей).
	Cron string `mapstructure:"cron"`

	// Port: порт /healthz и /metrics.
	Port int `mapstructure:"port"`

	// LockKey: ключ pg_advisory_lock лидера.
	LockKey int64 `mapstructure:"lock_key"`

	// Steps: имена шагов в порядке выполнения.
	Steps []string `mapstructure:"steps"`

	BackfillBatchSize int `mapstructure:"backfill_batch_size"`

	// MaxWeeklyBenefitCap: строка, чтобы не терять копейки при разборе.
	MaxWeeklyBenefitCap string `mapstructure:"max_weekly_benefit_cap"`

	StuckChecks []StuckCheck `mapstructure:"stuck_checks"`
}

// StuckCheck: одна проверка "сущности класса Class стоят в StateID
// дольше Days суток".
type StuckCheck struct {
	Class   string `mapstructure:"class"`
	StateID int    `mapstructure:"state_id"`
	Days    int    `mapstructure:"days"`
}

// MaxWeeklyBenefitCapAmount возвращает лимит как decimal.
func (p PipelineConfig) MaxWeeklyBenefitCapAmount() (decimal.Decimal, error) {
	limit, err := decimal.NewFromString(p.MaxWeeklyBenefitCap)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse max_weekly_benefit_cap %q: %w", p.MaxWeeklyBenefitCap, err)
	}
	return limit, nil
}

// envBindings: ключ конфига -> переменная окружения.
var envBindings = map[string]string{
	"database.url":                    "DB_URL",
	"database.max_conns":              "DB_MAX_CONNS",
	"rabbitmq.url":                    "RABBITMQ_URL",
	"log.level":                       "LOG_LEVEL",
	"log.format":                      "LOG_FORMAT",
	"api.port":                        "API_PORT",
	"api.base_url":                    "CLAIMFLOW_API_URL",
	"pipeline.cron":                   "PIPELINE_CRON",
	"pipeline.port":                   "PIPELINE_PORT",
	"pipeline.backfill_batch_size":    "BACKFILL_BATCH_SIZE",
	"pipeline.max_weekly_benefit_cap": "MAX_WEEKLY_BENEFIT_CAP",
	"notifier.port":                   "NOTIFIER_PORT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("log.level", "INFO")
	v.SetDefault("log.format", "json")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.base_url", "http://localhost:8080")
	v.SetDefault("pipeline.cron", "*/15 * * * *")
	v.SetDefault("pipeline.port", 8083)
	v.SetDefault("pipeline.lock_key", 424242)
	v.SetDefault("pipeline.steps", []string{
		"ClaimStateBackfillStep",
		"MaxWeeklyBenefitStep",
		"StuckStateCheckStep",
	})
	v.SetDefault("pipeline.backfill_batch_size", 1000)
	v.SetDefault("pipeline.max_weekly_benefit_cap", "850.00")
	v.SetDefault("pipeline.stuck_checks", []map[string]any{
		{"class": "payment", "state_id": 200, "days": 2},
		{"class": "claim", "state_id": 102, "days": 5},
	})
	v.SetDefault("notifier.port", 8084)
}

// Load читает конфиг. path: явный путь к yaml; пустой путь означает
// поиск claimflow.yaml в . и ./config (отсутствие файла не ошибка).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("claimflow")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет значения, от которых зависят шаги.
func (c *Config) Validate() error {
	if _, err := c.Pipeline.MaxWeeklyBenefitCapAmount(); err != nil {
		return err
	}
	if c.Pipeline.BackfillBatchSize <= 0 {
		return fmt.Errorf("pipeline.backfill_batch_size must be positive, got %d", c.Pipeline.BackfillBatchSize)
	}
	for i, check := range c.Pipeline.StuckChecks {
		if check.Days < 0 {
			return fmt.Errorf("pipeline.stuck_checks[%d]: negative days", i)
		}
	}
	return nil
}
