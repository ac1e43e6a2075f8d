package log

import "os"

// Config 日志配置
type Config struct {
	Level     string // debug/info/warn/error
	Format    string // text/json
	AddSource bool
}

// NewConfigFromEnv 从环境变量读取日志配置
func NewConfigFromEnv() *Config {
	cfg := &Config{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: os.Getenv("LOG_FORMAT"),
	}
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if os.Getenv("LOG_ADD_SOURCE") == "true" {
		cfg.AddSource = true
	}
	return cfg
}
