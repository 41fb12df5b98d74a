// Package provider 定义行情数据来源的抽象契约。
package provider

import (
	"context"

	"sectorpulse/pkg/market"
)

// QuoteRequest 一次行情列表查询
type QuoteRequest struct {
	Filter    string   // 市场过滤表达式（fs），如 "b:MK0354" 或 "m:90+t:2"
	Fields    []string // 请求的字段码列表，顺序即返回顺序
	Limit     int      // 返回条数上限
	SortField string   // 排序字段码，约定降序
}

// QuoteClient 行情列表客户端
// 返回顺序跟随 SortField 降序；传输或解析失败返回 error，
// 调用方须把失败当作"本周期无数据"处理，不得中断刷新周期。
type QuoteClient interface {
	// Name 返回数据源名称
	Name() string

	// FetchQuotes 拉取一批行情记录
	FetchQuotes(ctx context.Context, req QuoteRequest) ([]market.Quote, error)

	// IsHealthy 检查数据源健康状态
	IsHealthy() bool
}
