package market

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Normalize 将接口返回的原始字段值清洗为数值
// 行情接口用哨兵值表示"无数据"（停牌、字段不适用）："-"、null、缺失、空串，
// 这些一律归零；其余按十进制解析，解析失败同样归零。本函数不会失败。
func Normalize(raw gjson.Result) float64 {
	if !raw.Exists() || raw.Type == gjson.Null {
		return 0
	}

	switch raw.Type {
	case gjson.Number:
		return raw.Num
	case gjson.String:
		return NormalizeString(raw.Str)
	default:
		return 0
	}
}

// NormalizeString 清洗字符串形式的原始值
func NormalizeString(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" || s == "null" || s == "undefined" || s == "0" {
		return 0
	}

	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return val
}
