package eastmoney

import (
	"strings"

	"github.com/tidwall/gjson"

	"sectorpulse/pkg/market"
)

// 列表接口字段码与语义的固定映射，接口侧不提供字段发现
const (
	FieldCode          = "f12" // 代码
	FieldName          = "f14" // 名称
	FieldPrice         = "f2"  // 最新价
	FieldChangePercent = "f3"  // 涨跌幅(%)
	FieldTurnover      = "f6"  // 成交额(元)
	FieldVolumeRatio   = "f10" // 量比
	FieldSpeed         = "f22" // 涨速(%)
	FieldNetInflow     = "f62" // 主力净流入(元)
)

// DefaultFields 默认请求的字段码，顺序与语义映射见上
var DefaultFields = []string{
	FieldCode, FieldName, FieldPrice, FieldChangePercent,
	FieldTurnover, FieldVolumeRatio, FieldSpeed, FieldNetInflow,
}

const defaultLimit = 20

// parseQuoteList 解析列表接口响应
// 根路径 data.diff 为记录数组，接口异常时可能为对象（键 "0","1",...）或缺失；
// 所有数值字段经 Normalize 清洗，停牌标的的 "-" 哨兵一律归零。
func parseQuoteList(body []byte) []market.Quote {
	diff := gjson.GetBytes(body, "data.diff")
	if !diff.Exists() {
		return nil
	}

	var records []gjson.Result
	if diff.IsArray() {
		records = diff.Array()
	} else if diff.IsObject() {
		diff.ForEach(func(_, value gjson.Result) bool {
			records = append(records, value)
			return true
		})
	} else {
		return nil
	}

	quotes := make([]market.Quote, 0, len(records))
	for _, rec := range records {
		code := strings.TrimSpace(rec.Get(FieldCode).String())
		if code == "" {
			continue
		}

		quotes = append(quotes, market.Quote{
			Code:          code,
			Name:          strings.TrimSpace(rec.Get(FieldName).String()),
			Price:         market.Normalize(rec.Get(FieldPrice)),
			ChangePercent: market.Normalize(rec.Get(FieldChangePercent)),
			Turnover:      market.Normalize(rec.Get(FieldTurnover)),
			VolumeRatio:   market.Normalize(rec.Get(FieldVolumeRatio)),
			Speed:         market.Normalize(rec.Get(FieldSpeed)),
			NetInflow:     market.Normalize(rec.Get(FieldNetInflow)),
		})
	}

	return quotes
}
