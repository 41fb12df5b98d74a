package scheduler

import (
	"time"

	"sectorpulse/pkg/market"
)

// State 调度器状态
type State string

const (
	StateIdle         State = "idle"          // 初始状态，首轮抓取前
	StateFetching     State = "fetching"      // 刷新周期进行中
	StateCountingDown State = "counting_down" // 倒计时等待下次刷新
	StatePaused       State = "paused"        // 自动刷新已关闭
)

// Config 调度器配置
type Config struct {
	TradingInterval int `mapstructure:"trading_interval"` // 交易时段刷新间隔(秒)
	IdleInterval    int `mapstructure:"idle_interval"`    // 非交易时段刷新间隔(秒)

	PrimaryFilter string `mapstructure:"primary_filter"` // 主列表过滤表达式
	PrimaryLimit  int    `mapstructure:"primary_limit"`  // 主列表条数
	SectorFilter  string `mapstructure:"sector_filter"`  // 板块列表过滤表达式
	SectorLimit   int    `mapstructure:"sector_limit"`   // 板块条数
	MemberPrefix  string `mapstructure:"member_prefix"`  // 成分过滤前缀，拼板块代码
	MemberLimit   int    `mapstructure:"member_limit"`   // 单板块成分条数
	SortField     string `mapstructure:"sort_field"`     // 排序字段码，约定降序

	FetchTimeout time.Duration `mapstructure:"fetch_timeout"` // 单个刷新周期的总超时
}

// DefaultConfig 默认调度配置：可转债主列表 + 涨幅前 3 的行业板块
func DefaultConfig() Config {
	return Config{
		TradingInterval: 30,
		IdleInterval:    300,
		PrimaryFilter:   "b:MK0354", // 可转债
		PrimaryLimit:    20,
		SectorFilter:    "m:90+t:2", // 行业板块
		SectorLimit:     3,
		MemberPrefix:    "b:",
		MemberLimit:     20,
		SortField:       "f3", // 涨跌幅
		FetchTimeout:    30 * time.Second,
	}
}

// Snapshot 调度器对外的只读快照，所有切片均为副本
type Snapshot struct {
	State   State                    `json:"state"`
	Refresh market.RefreshState      `json:"refresh"`
	Quotes  []market.Quote           `json:"quotes"`
	Sectors []market.SectorSnapshot  `json:"sectors"`
	History []market.HistorySnapshot `json:"history"`
}

// CycleResult 单个刷新周期的产出，交给发布钩子（Redis/Influx 等）
type CycleResult struct {
	ID        string                   `json:"id"`
	Timestamp time.Time                `json:"timestamp"`
	Trading   bool                     `json:"trading"`
	Quotes    []market.Quote           `json:"quotes"`
	Sectors   []market.SectorSnapshot  `json:"sectors"`
	History   []market.HistorySnapshot `json:"history"`
}

// CycleHook 周期完成回调，在锁外调用
type CycleHook func(CycleResult)
