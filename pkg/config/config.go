package config

import "time"

// Config 应用核心配置
type Config struct {
	Mode     string `yaml:"mode"`
	HTTPPort int    `yaml:"http_port"`

	API struct {
		APIKey         string        `yaml:"api_key"`
		EmailsURL      string        `yaml:"emails_url"`
		RespondURL     string        `yaml:"respond_url"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
		TestMode       bool          `yaml:"test_mode"`
	} `yaml:"api"`

	Scheduler struct {
		Concurrency        int           `yaml:"concurrency"`
		SafetyMargin       time.Duration `yaml:"safety_margin"`
		InterDependencyGap time.Duration `yaml:"inter_dependency_gap"`
		GeneratorTimeout   time.Duration `yaml:"generator_timeout"`
	} `yaml:"scheduler"`

	Generator struct {
		Type         string        `yaml:"type"` // mock | openai
		DelayScale   time.Duration `yaml:"delay_scale"`
		DelayMin     time.Duration `yaml:"delay_min"`
		DelayMax     time.Duration `yaml:"delay_max"`
		Responses    []string      `yaml:"responses"`
		OpenAIAPIKey string        `yaml:"openai_api_key"`
		OpenAIModel  string        `yaml:"openai_model"`
	} `yaml:"generator"`

	Sink struct {
		MaxRetries  int           `yaml:"max_retries"`
		BackoffBase time.Duration `yaml:"backoff_base"`
	} `yaml:"sink"`

	Database DatabaseConfig `yaml:"database"`

	Trigger struct {
		CronEnabled  bool   `yaml:"cron_enabled"`
		CronExpr     string `yaml:"cron_expr"`
		CronTestMode bool   `yaml:"cron_test_mode"`
	} `yaml:"trigger"`
}

// DatabaseConfig 数据库配置（type为空时不启用run历史持久化）
type DatabaseConfig struct {
	Type     string `yaml:"type"` // sqlite | mysql | postgres
	Path     string `yaml:"path"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

// Default 返回默认配置
func Default() *Config {
	cfg := &Config{
		Mode:     "dev",
		HTTPPort: 8080,
	}
	cfg.API.RequestTimeout = 10 * time.Second
	cfg.API.TestMode = true
	cfg.Scheduler.Concurrency = 10
	cfg.Scheduler.SafetyMargin = 500 * time.Millisecond
	cfg.Scheduler.InterDependencyGap = 100 * time.Microsecond
	cfg.Scheduler.GeneratorTimeout = 10 * time.Second
	cfg.Generator.Type = "mock"
	cfg.Generator.DelayScale = 500 * time.Millisecond
	cfg.Generator.DelayMin = 400 * time.Millisecond
	cfg.Generator.DelayMax = 600 * time.Millisecond
	cfg.Sink.MaxRetries = 3
	cfg.Sink.BackoffBase = 200 * time.Millisecond
	return cfg
}
