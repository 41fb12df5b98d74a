// Package advisor 基于排名结果构建行情解读提示词，并调用大模型生成解读文本。
package advisor

import (
	"fmt"
	"strings"

	"sectorpulse/pkg/market"
)

// maxPromptQuotes 提示词最多携带的标的数
const maxPromptQuotes = 5

// BuildPrompt 把排名靠前的标的与板块快照组织成解读提示词
// 输入应当已经过排序与清洗，本函数只做文本拼装
func BuildPrompt(quotes []market.Quote, sectors []market.SectorSnapshot) string {
	var b strings.Builder

	b.WriteString("你是一名谨慎的市场观察员。请根据以下实时数据，用不超过150字做一段客观的盘面点评，")
	b.WriteString("不构成投资建议，不使用夸张措辞。\n\n")

	if len(quotes) > 0 {
		b.WriteString("涨幅靠前的标的：\n")
		n := len(quotes)
		if n > maxPromptQuotes {
			n = maxPromptQuotes
		}
		for _, q := range quotes[:n] {
			fmt.Fprintf(&b, "- %s(%s) 现价 %.2f 涨跌幅 %.2f%%\n", q.Name, q.Code, q.Price, q.ChangePercent)
		}
		b.WriteString("\n")
	}

	if len(sectors) > 0 {
		b.WriteString("领涨板块：\n")
		for _, sec := range sectors {
			fmt.Fprintf(&b, "- %s 涨跌幅 %.2f%%", sec.Name, sec.ChangePercent)
			if sec.Leaders != nil {
				fmt.Fprintf(&b, "，领涨 %s(%.2f%%)，资金流入龙头 %s",
					sec.Leaders.Gainer.Name, sec.Leaders.Gainer.Value, sec.Leaders.Funds.Name)
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}
