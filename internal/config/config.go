// Package config 负责加载 soulscan 的 YAML 配置并填充默认值。
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"soul-scanner/pkg/logger"
)

// DefaultAPIKeyEnv 是上游大模型密钥默认读取的环境变量。
const DefaultAPIKeyEnv = "OPENAI_API_KEY"

// Config 描述了 soulscan 在启动阶段需要加载的全部配置。
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	LLM     LLMConfig     `yaml:"llm"`
	Score   ScoreConfig   `yaml:"score"`
	Insight InsightConfig `yaml:"insight"`
	Events  EventsConfig  `yaml:"events"`
	Wallet  WalletConfig  `yaml:"wallet"`
	Logging logger.Config `yaml:"logging"`
}

// ServerConfig 控制洞察代理服务的监听地址等参数。
type ServerConfig struct {
	Address                  string `yaml:"address"`
	ReadHeaderTimeoutSeconds int    `yaml:"read_header_timeout_seconds"`
}

// LLMConfig 用于配置上游文本生成服务。
type LLMConfig struct {
	OpenAI OpenAIConfig `yaml:"openai"`
}

// OpenAIConfig 描述 OpenAI 兼容接口的调用参数。
type OpenAIConfig struct {
	APIKey         string  `yaml:"api_key"`
	APIKeyEnv      string  `yaml:"api_key_env"`
	BaseURL        string  `yaml:"base_url"`
	Model          string  `yaml:"model"`
	MaxTokens      int     `yaml:"max_tokens"`
	Temperature    float64 `yaml:"temperature"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

// Timeout 返回调用 OpenAI 时使用的超时时间。
func (c OpenAIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ResolveAPIKey 优先使用配置中的密钥，否则读取 api_key_env 指向的环境变量。
func (c OpenAIConfig) ResolveAPIKey() string {
	if key := strings.TrimSpace(c.APIKey); key != "" {
		return key
	}
	env := c.APIKeyEnv
	if env == "" {
		env = DefaultAPIKeyEnv
	}
	return strings.TrimSpace(os.Getenv(env))
}

// ScoreConfig 描述灵魂分数服务以及可选的 Redis 缓存。
type ScoreConfig struct {
	BaseURL        string      `yaml:"base_url"`
	TimeoutSeconds int         `yaml:"timeout_seconds"`
	Cache          RedisConfig `yaml:"cache"`
}

// Timeout 返回分数查询的超时时间。
func (c ScoreConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RedisConfig 是 Redis 连接的通用参数，Address 为空表示不启用。
type RedisConfig struct {
	Address    string `yaml:"address"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	Key        string `yaml:"key"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// TTL 返回缓存条目的存活时间。
func (c RedisConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// InsightConfig 描述客户端访问洞察代理的方式。
type InsightConfig struct {
	Endpoint       string `yaml:"endpoint"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout 返回洞察请求的超时时间。
func (c InsightConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// EventsConfig 控制扫描完成事件的投递方式。
type EventsConfig struct {
	Driver   string             `yaml:"driver"`
	Redis    RedisChannelConfig `yaml:"redis"`
	RabbitMQ RabbitMQConfig     `yaml:"rabbitmq"`
}

// RedisChannelConfig 描述事件使用的 Redis pub/sub 频道。
type RedisChannelConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

// RabbitMQConfig 描述 RabbitMQ 的连接参数。
type RabbitMQConfig struct {
	URL     string `yaml:"url"`
	Queue   string `yaml:"queue"`
	Durable bool   `yaml:"durable"`
}

// WalletConfig 指向描述注入钱包环境的 YAML 文件。
type WalletConfig struct {
	Snapshot string `yaml:"snapshot"`
}

// Load 负责解析指定路径的 YAML 配置文件。
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("配置文件路径为空")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	cfg.applyDefaults(filepath.Dir(path))
	cfg.applyEnv()
	return &cfg, nil
}

// Default 返回未提供配置文件时使用的配置。
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults(".")
	cfg.applyEnv()
	return cfg
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.ReadHeaderTimeoutSeconds <= 0 {
		c.Server.ReadHeaderTimeoutSeconds = 5
	}

	if c.LLM.OpenAI.APIKeyEnv == "" {
		c.LLM.OpenAI.APIKeyEnv = DefaultAPIKeyEnv
	}
	if c.LLM.OpenAI.MaxTokens <= 0 {
		c.LLM.OpenAI.MaxTokens = 80
	}
	if c.LLM.OpenAI.Temperature <= 0 {
		c.LLM.OpenAI.Temperature = 1.0
	}
	if c.LLM.OpenAI.TimeoutSeconds <= 0 {
		c.LLM.OpenAI.TimeoutSeconds = 60
	}

	if c.Score.BaseURL == "" {
		c.Score.BaseURL = "https://api.carv.io"
	}
	if c.Score.TimeoutSeconds <= 0 {
		c.Score.TimeoutSeconds = 10
	}
	if c.Score.Cache.Key == "" {
		c.Score.Cache.Key = "soulscan:score"
	}
	if c.Score.Cache.TTLSeconds <= 0 {
		c.Score.Cache.TTLSeconds = 300
	}

	if c.Insight.Endpoint == "" {
		c.Insight.Endpoint = "http://localhost:8080/api/ask"
	}
	if c.Insight.TimeoutSeconds <= 0 {
		c.Insight.TimeoutSeconds = 30
	}

	if c.Events.Redis.Channel == "" {
		c.Events.Redis.Channel = "soulscan:scans"
	}
	if c.Events.RabbitMQ.Queue == "" {
		c.Events.RabbitMQ.Queue = "soulscan.scans"
	}

	if c.Wallet.Snapshot != "" && !filepath.IsAbs(c.Wallet.Snapshot) {
		c.Wallet.Snapshot = filepath.Join(baseDir, c.Wallet.Snapshot)
	}
}

// applyEnv 允许通过环境变量覆盖监听地址，兼容常见的 PORT 约定。
func (c *Config) applyEnv() {
	if addr := strings.TrimSpace(os.Getenv("SOULSCAN_ADDR")); addr != "" {
		c.Server.Address = addr
		return
	}
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		c.Server.Address = ":" + port
	}
}
