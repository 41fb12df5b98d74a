// Package decorators 为行情客户端提供可叠加的包装层。
package decorators

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"sectorpulse/pkg/logger"
	"sectorpulse/pkg/market"
	"sectorpulse/pkg/provider"
)

// CircuitBreakerClient 熔断器装饰器
// 使用 sony/gobreaker 在数据源持续故障时快速失败，避免每个周期都等超时
type CircuitBreakerClient struct {
	inner  provider.QuoteClient
	cb     *gobreaker.CircuitBreaker
	config *CircuitBreakerConfig
}

// CircuitBreakerConfig 熔断器配置
type CircuitBreakerConfig struct {
	Name        string        `mapstructure:"name"`          // 熔断器名称
	MaxRequests uint32        `mapstructure:"max_requests"`  // 半开状态下的最大请求数
	Interval    time.Duration `mapstructure:"interval"`      // 统计窗口时间
	Timeout     time.Duration `mapstructure:"timeout"`       // 熔断器打开后的超时时间
	ReadyToTrip uint32        `mapstructure:"ready_to_trip"` // 触发熔断的连续失败阈值
}

// DefaultCircuitBreakerConfig 默认熔断器配置
func DefaultCircuitBreakerConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Name:        "QuoteClient",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: 5,
	}
}

// NewCircuitBreakerClient 创建熔断器装饰器
func NewCircuitBreakerClient(inner provider.QuoteClient, config *CircuitBreakerConfig) *CircuitBreakerClient {
	if config == nil {
		config = DefaultCircuitBreakerConfig()
	}

	log := logger.WithComponent("CircuitBreaker")

	settings := gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.ReadyToTrip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnf("熔断器 %s 状态从 %v 变更为 %v", name, from, to)
		},
	}

	return &CircuitBreakerClient{
		inner:  inner,
		cb:     gobreaker.NewCircuitBreaker(settings),
		config: config,
	}
}

// Name 返回装饰后的名称
func (c *CircuitBreakerClient) Name() string {
	return fmt.Sprintf("CircuitBreaker(%s)", c.inner.Name())
}

// IsHealthy 熔断器打开状态视为不健康
func (c *CircuitBreakerClient) IsHealthy() bool {
	return c.cb.State() != gobreaker.StateOpen && c.inner.IsHealthy()
}

// FetchQuotes 经熔断器执行行情拉取
func (c *CircuitBreakerClient) FetchQuotes(ctx context.Context, req provider.QuoteRequest) ([]market.Quote, error) {
	result, err := c.cb.Execute(func() (interface{}, error) {
		return c.inner.FetchQuotes(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	quotes, ok := result.([]market.Quote)
	if !ok {
		return nil, fmt.Errorf("熔断器返回数据类型错误")
	}

	return quotes, nil
}

// State 获取熔断器当前状态
func (c *CircuitBreakerClient) State() gobreaker.State {
	return c.cb.State()
}

var _ provider.QuoteClient = (*CircuitBreakerClient)(nil)
