package market

import "time"

// Quote 单只标的的实时行情快照，所有数值字段均已经过 Normalize 清洗
type Quote struct {
	Code          string  `json:"code"`           // 标的代码
	Name          string  `json:"name"`           // 标的名称
	Price         float64 `json:"price"`          // 最新价
	ChangePercent float64 `json:"change_percent"` // 涨跌幅(%)
	Turnover      float64 `json:"turnover"`       // 成交额(元)
	VolumeRatio   float64 `json:"volume_ratio"`   // 量比
	Speed         float64 `json:"speed"`          // 涨速(%)
	NetInflow     float64 `json:"net_inflow"`     // 主力净流入(元)
}

// LeaderEntry 某一维度的板块领涨标的
type LeaderEntry struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Leaders 板块三维度龙头：涨幅、成交额、资金净流入
// 要么三项齐全，要么整体缺席（板块无成分数据）
type Leaders struct {
	Gainer LeaderEntry `json:"gainer"`
	Volume LeaderEntry `json:"volume"`
	Funds  LeaderEntry `json:"funds"`
}

// SectorSnapshot 板块快照，Leaders 在成分排名完成前为 nil
type SectorSnapshot struct {
	Code          string   `json:"code"`
	Name          string   `json:"name"`
	ChangePercent float64  `json:"change_percent"`
	Leaders       *Leaders `json:"leaders,omitempty"`
}

// HistorySnapshot 板块涨跌幅历史采样点，Label 为分钟粒度 HH:MM
// 创建后不再修改，仅因容量淘汰被整体丢弃
type HistorySnapshot struct {
	Label   string             `json:"label"`
	Sectors map[string]float64 `json:"sectors"` // 板块名 -> 涨跌幅(%)
}

// RefreshState 刷新状态快照，由调度器独占写入，消费方只读
type RefreshState struct {
	Trading     bool      `json:"trading"`      // 当前是否交易时段
	Countdown   int       `json:"countdown"`    // 距下次刷新的秒数，恒 >= 0
	LastUpdate  time.Time `json:"last_update"`  // 最近一次刷新完成时间
	AutoRefresh bool      `json:"auto_refresh"` // 自动刷新是否开启
	InFlight    bool      `json:"in_flight"`    // 是否有刷新周期进行中
}
