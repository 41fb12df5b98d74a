// Package sink 把刷新周期的产出向外发布（Redis 频道、InfluxDB 时序库）。
// 发布失败只记日志，绝不反过来影响刷新节奏。
package sink

import (
	"context"
	"time"

	"sectorpulse/pkg/logger"
	"sectorpulse/pkg/scheduler"
)

// Publisher 周期产出发布器
type Publisher interface {
	// Name 返回发布器名称
	Name() string

	// Publish 发布一个周期的产出
	Publish(ctx context.Context, result scheduler.CycleResult) error

	// Close 释放底层连接
	Close() error
}

// publishTimeout 单次发布的超时上限
const publishTimeout = 5 * time.Second

// Fanout 把周期产出分发给多个发布器，逐个隔离错误
type Fanout struct {
	publishers []Publisher
}

// NewFanout 创建发布分发器，nil 发布器被忽略
func NewFanout(publishers ...Publisher) *Fanout {
	f := &Fanout{}
	for _, p := range publishers {
		if p != nil {
			f.publishers = append(f.publishers, p)
		}
	}
	return f
}

// Hook 返回可挂到调度器上的周期回调
func (f *Fanout) Hook() scheduler.CycleHook {
	log := logger.WithComponent("Sink")

	return func(result scheduler.CycleResult) {
		for _, p := range f.publishers {
			ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
			if err := p.Publish(ctx, result); err != nil {
				log.Warnf("发布到 %s 失败: %v", p.Name(), err)
			}
			cancel()
		}
	}
}

// Close 关闭全部发布器
func (f *Fanout) Close() {
	for _, p := range f.publishers {
		_ = p.Close()
	}
}
