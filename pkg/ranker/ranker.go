// Package ranker 对板块成分股做三维度排名，产出涨幅/成交/资金龙头。
package ranker

import (
	"sort"

	"sectorpulse/pkg/market"
)

// RankLeaders 对一个板块的成分行情做三次独立降序排名，取各维度榜首。
// 成分为空时返回 nil，表示"龙头未知"而非错误。
// 排序在副本上进行，不改动调用方切片；并列时按原始接口顺序取先出现者，
// 因此必须使用稳定排序保证可复现。
func RankLeaders(members []market.Quote) *market.Leaders {
	if len(members) == 0 {
		return nil
	}

	top := func(key func(q market.Quote) float64) market.Quote {
		sorted := make([]market.Quote, len(members))
		copy(sorted, members)
		sort.SliceStable(sorted, func(i, j int) bool {
			return key(sorted[i]) > key(sorted[j])
		})
		return sorted[0]
	}

	gainer := top(func(q market.Quote) float64 { return q.ChangePercent })
	volume := top(func(q market.Quote) float64 { return q.Turnover })
	funds := top(func(q market.Quote) float64 { return q.NetInflow })

	return &market.Leaders{
		Gainer: market.LeaderEntry{Name: gainer.Name, Value: gainer.ChangePercent},
		Volume: market.LeaderEntry{Name: volume.Name, Value: volume.Turnover},
		Funds:  market.LeaderEntry{Name: funds.Name, Value: funds.NetInflow},
	}
}
