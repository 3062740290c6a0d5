package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisConfig 描述 Redis 事件频道的连接参数。
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Channel  string
}

// publishClient 是 RedisPublisher 依赖的 go-redis 能力。
type publishClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// RedisPublisher 通过 PUBLISH 将事件广播给当前订阅者，Redis 中不留存事件。
type RedisPublisher struct {
	client  publishClient
	channel string
}

// NewRedisPublisher 创建 Redis 事件发布器。
func NewRedisPublisher(ctx context.Context, cfg RedisConfig) (*RedisPublisher, error) {
	if cfg.Address == "" {
		return nil, errors.New("Redis address 不能为空")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}
	return newRedisPublisher(client, cfg.Channel), nil
}

func newRedisPublisher(client publishClient, channel string) *RedisPublisher {
	if channel == "" {
		channel = "soulscan:scans"
	}
	return &RedisPublisher{client: client, channel: channel}
}

// Publish 将事件发布到频道。没有订阅者时事件直接丢弃。
func (p *RedisPublisher) Publish(ctx context.Context, event ScanCompleted) error {
	body, err := encode(event)
	if err != nil {
		return fmt.Errorf("序列化扫描事件失败: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, body).Err(); err != nil {
		return fmt.Errorf("Redis 发布事件失败: %w", err)
	}
	return nil
}

// Close 关闭 Redis 连接。
func (p *RedisPublisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}
