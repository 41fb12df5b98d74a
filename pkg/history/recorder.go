// Package history 维护板块涨跌幅的滚动采样序列，供趋势图使用。
package history

import (
	"time"

	"sectorpulse/pkg/market"
)

// MaxEntries 历史序列容量上限，超出后从头部淘汰
const MaxEntries = 12

// sampleEvery 采样分钟间隔：整 5 分钟采一个点
const sampleEvery = 5

// MaybeSample 在满足采样条件时向历史序列追加一个采样点并返回新序列。
// 采样条件：当前分钟为整 5 分钟，或历史为空（保证启动后图表不空白）。
// 本周期没有任何板块数据时不采样；同一分钟标签只保留一个点。
// 序列本身由调用方持有，本函数无内部状态。
func MaybeSample(now time.Time, sectors []market.SectorSnapshot, current []market.HistorySnapshot) []market.HistorySnapshot {
	if len(sectors) == 0 {
		return current
	}

	if now.Minute()%sampleEvery != 0 && len(current) > 0 {
		return current
	}

	label := now.Format("15:04")
	if len(current) > 0 && current[len(current)-1].Label == label {
		return current
	}

	payload := make(map[string]float64, len(sectors))
	for _, sec := range sectors {
		if sec.Name == "" {
			continue
		}
		payload[sec.Name] = sec.ChangePercent
	}

	next := append(current, market.HistorySnapshot{
		Label:   label,
		Sectors: payload,
	})

	if len(next) > MaxEntries {
		next = next[len(next)-MaxEntries:]
	}

	return next
}
