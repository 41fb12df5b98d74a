package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"sectorpulse/pkg/scheduler"
)

// latestTTL 最新快照键的过期时间，进程退出后数据自然消亡
const latestTTL = 10 * time.Minute

// RedisPublisher 把周期产出以 JSON 形式发布到 Redis
// 一条 Publish 到频道供订阅方实时消费，同时 Set 到固定键供后来者取最新值
type RedisPublisher struct {
	client  *redis.Client
	channel string
	key     string
}

// NewRedisPublisher 创建 Redis 发布器并验证连通性
func NewRedisPublisher(addr, password string, db int, channel, key string) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisPublisher{
		client:  client,
		channel: channel,
		key:     key,
	}, nil
}

// Name 返回发布器名称
func (p *RedisPublisher) Name() string {
	return "redis"
}

// Publish 发布周期产出
func (p *RedisPublisher) Publish(ctx context.Context, result scheduler.CycleResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal cycle result: %w", err)
	}

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", p.channel, err)
	}

	if p.key != "" {
		if err := p.client.Set(ctx, p.key, payload, latestTTL).Err(); err != nil {
			return fmt.Errorf("set %s: %w", p.key, err)
		}
	}

	return nil
}

// Close 关闭 Redis 连接
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

var _ Publisher = (*RedisPublisher)(nil)
