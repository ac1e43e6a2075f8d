package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Engine    EngineConfig    `yaml:"engine"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Qdrant    QdrantConfig    `yaml:"qdrant"`
	Ingest    IngestConfig    `yaml:"ingest"`
	WebSocket WebSocketConfig `yaml:"websocket"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTPPort string `yaml:"http_port"` // 固定端口，同时用于单例锁
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Path string `yaml:"path"` // 留空表示 ~/.opengpts/opengpts.db
}

// AuthConfig 本地 JWT 认证配置
type AuthConfig struct {
	Secret   string `yaml:"secret"`
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`
}

// EngineConfig 生成引擎（OpenAI 兼容 Chat API）配置
type EngineConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// EmbeddingConfig Embedding API 配置
type EmbeddingConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// QdrantConfig 向量库配置
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Collection string `yaml:"collection"`
}

// IngestConfig 摄取配置
type IngestConfig struct {
	BatchSize     int `yaml:"batch_size"`
	MaxBatchChars int `yaml:"max_batch_chars"`
	ChunkSize     int `yaml:"chunk_size"`
	ChunkOverlap  int `yaml:"chunk_overlap"`
}

// WebSocketConfig WebSocket 配置
type WebSocketConfig struct {
	ReadBufferSize  int `yaml:"read_buffer_size"`
	WriteBufferSize int `yaml:"write_buffer_size"`
}

// NewConfig 创建配置（默认值 + 可选配置文件 + 环境变量覆盖）
// 配置文件路径取 OPENGPTS_CONFIG，未设置时只用默认值
func NewConfig() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("OPENGPTS_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: ":8100",
		},
		Auth: AuthConfig{
			Issuer:   "opengpts",
			Audience: "opengpts",
		},
		Engine: EngineConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o",
		},
		Embedding: EmbeddingConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "text-embedding-3-small",
		},
		Qdrant: QdrantConfig{
			Host:       "localhost",
			Port:       6334,
			Collection: "opengpts_chunks",
		},
		Ingest: IngestConfig{
			BatchSize:     5,
			MaxBatchChars: 50_000,
			ChunkSize:     1000,
			ChunkOverlap:  200,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// applyEnvOverrides 密钥类配置优先从环境变量读取
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		if cfg.Engine.APIKey == "" {
			cfg.Engine.APIKey = v
		}
		if cfg.Embedding.APIKey == "" {
			cfg.Embedding.APIKey = v
		}
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}
}

// NewServerConfig 提供服务器配置
func NewServerConfig(cfg *Config) *ServerConfig {
	return &cfg.Server
}

// NewDatabaseConfig 提供数据库配置
func NewDatabaseConfig(cfg *Config) *DatabaseConfig {
	return &cfg.Database
}

// NewAuthConfig 提供认证配置
func NewAuthConfig(cfg *Config) *AuthConfig {
	return &cfg.Auth
}

// NewEngineConfig 提供引擎配置
func NewEngineConfig(cfg *Config) *EngineConfig {
	return &cfg.Engine
}

// NewEmbeddingConfig 提供 Embedding 配置
func NewEmbeddingConfig(cfg *Config) *EmbeddingConfig {
	return &cfg.Embedding
}

// NewQdrantConfig 提供向量库配置
func NewQdrantConfig(cfg *Config) *QdrantConfig {
	return &cfg.Qdrant
}

// NewIngestConfig 提供摄取配置
func NewIngestConfig(cfg *Config) *IngestConfig {
	return &cfg.Ingest
}

// NewWebSocketConfig 提供 WebSocket 配置
func NewWebSocketConfig(cfg *Config) *WebSocketConfig {
	return &cfg.WebSocket
}
