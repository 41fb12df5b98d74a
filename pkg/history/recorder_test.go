package history

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sectorpulse/pkg/market"
)

func at(clock string) time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", "2025-08-21 "+clock)
	if err != nil {
		panic(err)
	}
	return t
}

func sectors(pairs ...interface{}) []market.SectorSnapshot {
	var out []market.SectorSnapshot
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, market.SectorSnapshot{
			Name:          pairs[i].(string),
			ChangePercent: pairs[i+1].(float64),
		})
	}
	return out
}

func TestMaybeSample_BootstrapOnEmptyHistory(t *testing.T) {
	// 历史为空时不受整 5 分钟限制，保证启动即有首个采样点
	got := MaybeSample(at("10:07:30"), sectors("半导体", 2.1), nil)

	require.Len(t, got, 1)
	assert.Equal(t, "10:07", got[0].Label)
	assert.Equal(t, 2.1, got[0].Sectors["半导体"])
}

func TestMaybeSample_OnlyOnFiveMinuteMark(t *testing.T) {
	base := MaybeSample(at("10:05:00"), sectors("半导体", 1.0), nil)
	require.Len(t, base, 1)

	// 非整 5 分钟不采样
	got := MaybeSample(at("10:07:00"), sectors("半导体", 1.5), base)
	assert.Len(t, got, 1)

	// 整 5 分钟采样
	got = MaybeSample(at("10:10:00"), sectors("半导体", 1.5), got)
	require.Len(t, got, 2)
	assert.Equal(t, "10:10", got[1].Label)
}

func TestMaybeSample_DedupSameMinute(t *testing.T) {
	// 同一分钟内多次调用不产生重复点
	first := MaybeSample(at("10:05:03"), sectors("券商", 0.8), nil)
	second := MaybeSample(at("10:05:40"), sectors("券商", 0.9), first)

	require.Len(t, second, 1)
	assert.Equal(t, "10:05", second[0].Label)
	// 去重时保留首次采样值，不覆盖
	assert.Equal(t, 0.8, second[0].Sectors["券商"])
}

func TestMaybeSample_CapacityFIFO(t *testing.T) {
	var hist []market.HistorySnapshot

	// 连续 20 个整 5 分钟采样，容量封顶 12，从头部淘汰
	now := at("09:25:00")
	for i := 0; i < 20; i++ {
		hist = MaybeSample(now, sectors("电力", float64(i)), hist)
		assert.LessOrEqual(t, len(hist), MaxEntries)
		now = now.Add(5 * time.Minute)
	}

	require.Len(t, hist, MaxEntries)
	// 前 8 个点已被淘汰，序列从第 9 个点开始
	assert.Equal(t, "10:05", hist[0].Label)
	assert.Equal(t, "11:00", hist[len(hist)-1].Label)
}

func TestMaybeSample_NoEntryWithoutSectors(t *testing.T) {
	// 板块接口空返回的周期不追加任何点
	base := MaybeSample(at("10:05:00"), sectors("医药", 1.2), nil)
	require.Len(t, base, 1)

	got := MaybeSample(at("10:10:00"), nil, base)
	assert.Equal(t, base, got)

	// 启动即无数据时历史保持空白
	assert.Empty(t, MaybeSample(at("10:10:00"), nil, nil))
}

func TestMaybeSample_MissingSectorAbsentNotZero(t *testing.T) {
	// 某板块本次无数据时，该板块在采样点中缺席而非补零
	first := MaybeSample(at("10:05:00"), sectors("半导体", 2.0, "券商", 1.0), nil)
	second := MaybeSample(at("10:10:00"), sectors("半导体", 2.2), first)

	require.Len(t, second, 2)
	_, ok := second[1].Sectors["券商"]
	assert.False(t, ok)
}

func TestMaybeSample_LabelsNeverRepeatConsecutively(t *testing.T) {
	var hist []market.HistorySnapshot
	now := at("09:25:00")
	for i := 0; i < 60; i++ {
		hist = MaybeSample(now, sectors("汽车", float64(i)), hist)
		now = now.Add(30 * time.Second)
	}

	for i := 1; i < len(hist); i++ {
		assert.NotEqual(t, hist[i-1].Label, hist[i].Label,
			fmt.Sprintf("相邻采样点 %d/%d 标签重复", i-1, i))
	}
}
