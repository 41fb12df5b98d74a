package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sectorpulse/pkg/market"
	"sectorpulse/pkg/provider"
	"sectorpulse/pkg/timing"
)

// mockTime 可控时钟
type mockTime struct {
	mu      sync.Mutex
	current time.Time
}

func (m *mockTime) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *mockTime) set(clock string) {
	t, err := time.Parse("2006-01-02 15:04:05", "2025-08-21 "+clock)
	if err != nil {
		panic(err)
	}
	m.mu.Lock()
	m.current = t
	m.mu.Unlock()
}

// scriptedClient 按过滤表达式返回预置数据的假数据源
type scriptedClient struct {
	mu        sync.Mutex
	responses map[string][]market.Quote
	errors    map[string]error
	calls     []string
	gate      chan struct{} // 非 nil 时抓取阻塞，用于模拟慢请求
}

func newScriptedClient() *scriptedClient {
	return &scriptedClient{
		responses: make(map[string][]market.Quote),
		errors:    make(map[string]error),
	}
}

func (c *scriptedClient) Name() string    { return "scripted" }
func (c *scriptedClient) IsHealthy() bool { return true }

func (c *scriptedClient) FetchQuotes(ctx context.Context, req provider.QuoteRequest) ([]market.Quote, error) {
	if c.gate != nil {
		<-c.gate
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, req.Filter)

	if err, ok := c.errors[req.Filter]; ok {
		return nil, err
	}
	return c.responses[req.Filter], nil
}

func (c *scriptedClient) callLog() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	copy(out, c.calls)
	return out
}

func newTestScheduler(client provider.QuoteClient, clock *mockTime) *RefreshScheduler {
	cfg := DefaultConfig()
	cfg.FetchTimeout = 5 * time.Second
	return New(client, timing.NewMarketClock(clock), cfg)
}

func seedFeed(client *scriptedClient) {
	client.responses["b:MK0354"] = []market.Quote{
		{Code: "113050", Name: "南银转债", ChangePercent: 1.8, Turnover: 2.5e8},
		{Code: "127007", Name: "湖广转债", ChangePercent: -0.3, Turnover: 8.7e6},
	}
	client.responses["m:90+t:2"] = []market.Quote{
		{Code: "BK1036", Name: "半导体", ChangePercent: 2.4},
		{Code: "BK0475", Name: "银行", ChangePercent: 0.9},
		{Code: "BK0448", Name: "通信设备", ChangePercent: 0.5},
	}
	client.responses["b:BK1036"] = []market.Quote{
		{Code: "688981", Name: "中芯国际", ChangePercent: 3.1, Turnover: 9e8, NetInflow: 1.2e8},
		{Code: "603986", Name: "兆易创新", ChangePercent: 5.5, Turnover: 4e8, NetInflow: -2e6},
	}
	client.responses["b:BK0475"] = []market.Quote{
		{Code: "601398", Name: "工商银行", ChangePercent: 0.8, Turnover: 6e8, NetInflow: 3e7},
	}
	// BK0448 故意无成分数据
}

func TestCycle_FullFetch(t *testing.T) {
	client := newScriptedClient()
	seedFeed(client)
	clock := &mockTime{}
	clock.set("10:00:00") // 交易时段

	s := newTestScheduler(client, clock)
	require.True(t, s.beginCycle())
	s.executeCycle(context.Background())

	snap := s.Snapshot()
	assert.Equal(t, StateCountingDown, snap.State)
	assert.True(t, snap.Refresh.Trading)
	assert.Equal(t, 30, snap.Refresh.Countdown)
	assert.False(t, snap.Refresh.InFlight)

	// 一个完整周期共 5 次外部调用：主列表 + 板块列表 + 3 个板块成分
	assert.Len(t, client.callLog(), 5)

	require.Len(t, snap.Quotes, 2)
	require.Len(t, snap.Sectors, 3)

	// 半导体板块三维度龙头：涨幅榜首兆易创新，成交与资金榜首中芯国际
	leaders := snap.Sectors[0].Leaders
	require.NotNil(t, leaders)
	assert.Equal(t, "兆易创新", leaders.Gainer.Name)
	assert.Equal(t, "中芯国际", leaders.Volume.Name)
	assert.Equal(t, "中芯国际", leaders.Funds.Name)

	// 无成分数据的板块龙头整体缺席
	assert.Nil(t, snap.Sectors[2].Leaders)

	// 首轮必有历史采样点（bootstrap）
	require.Len(t, snap.History, 1)
	assert.Equal(t, "10:00", snap.History[0].Label)
	assert.Equal(t, 2.4, snap.History[0].Sectors["半导体"])
}

func TestCycle_IdleIntervalOffHours(t *testing.T) {
	client := newScriptedClient()
	seedFeed(client)
	clock := &mockTime{}
	clock.set("16:00:00") // 收盘后

	s := newTestScheduler(client, clock)
	require.True(t, s.beginCycle())
	s.executeCycle(context.Background())

	snap := s.Snapshot()
	assert.False(t, snap.Refresh.Trading)
	assert.Equal(t, 300, snap.Refresh.Countdown)
}

func TestCycle_FailSoftOnSectorOutage(t *testing.T) {
	client := newScriptedClient()
	seedFeed(client)
	client.errors["m:90+t:2"] = errors.New("feed unavailable")
	clock := &mockTime{}
	clock.set("10:05:00")

	s := newTestScheduler(client, clock)
	require.True(t, s.beginCycle())
	s.executeCycle(context.Background())

	snap := s.Snapshot()
	// 板块接口故障不影响回到倒计时，间隔按交易状态取值
	assert.Equal(t, StateCountingDown, snap.State)
	assert.Equal(t, 30, snap.Refresh.Countdown)
	// 主列表正常更新，板块为空，不产生历史采样点
	assert.Len(t, snap.Quotes, 2)
	assert.Empty(t, snap.Sectors)
	assert.Empty(t, snap.History)
}

func TestCycle_TotalOutageKeepsCadence(t *testing.T) {
	client := newScriptedClient()
	client.errors["b:MK0354"] = errors.New("down")
	client.errors["m:90+t:2"] = errors.New("down")
	clock := &mockTime{}
	clock.set("14:00:00")

	s := newTestScheduler(client, clock)
	require.True(t, s.beginCycle())
	s.executeCycle(context.Background())

	snap := s.Snapshot()
	assert.Equal(t, StateCountingDown, snap.State)
	assert.Equal(t, 30, snap.Refresh.Countdown)
	// 全线故障仅发 2 次调用（无板块可继续展开）
	assert.Len(t, client.callLog(), 2)
}

func TestRefresh_InFlightGuard(t *testing.T) {
	client := newScriptedClient()
	seedFeed(client)
	client.gate = make(chan struct{})
	clock := &mockTime{}
	clock.set("10:00:00")

	s := newTestScheduler(client, clock)
	s.ctx = context.Background()

	// 首个周期卡在慢请求上
	require.True(t, s.Refresh())
	require.Eventually(t, func() bool {
		return s.Snapshot().Refresh.InFlight
	}, time.Second, 5*time.Millisecond)

	// 手动触发与定时触发在周期在途时都是空操作
	assert.False(t, s.Refresh())
	assert.False(t, s.Refresh())

	close(client.gate)
	require.Eventually(t, func() bool {
		return !s.Snapshot().Refresh.InFlight
	}, time.Second, 5*time.Millisecond)

	// 仅执行了一个周期：5 次外部调用而非 10 次
	assert.Len(t, client.callLog(), 5)
	assert.Equal(t, StateCountingDown, s.Snapshot().State)
}

func TestAutoRefresh_PauseAndResume(t *testing.T) {
	client := newScriptedClient()
	seedFeed(client)
	clock := &mockTime{}
	clock.set("10:00:00")

	s := newTestScheduler(client, clock)
	require.True(t, s.beginCycle())
	s.executeCycle(context.Background())
	require.Equal(t, StateCountingDown, s.Snapshot().State)

	// 关闭自动刷新：倒计时取消
	s.SetAutoRefresh(false)
	snap := s.Snapshot()
	assert.Equal(t, StatePaused, snap.State)
	assert.Equal(t, 0, snap.Refresh.Countdown)

	// 暂停状态下 tick 不触发抓取
	before := len(client.callLog())
	for i := 0; i < 40; i++ {
		s.tick()
	}
	assert.Equal(t, before, len(client.callLog()))

	// 重新开启：全新倒计时而非续用旧值
	s.SetAutoRefresh(true)
	snap = s.Snapshot()
	assert.Equal(t, StateCountingDown, snap.State)
	assert.Equal(t, 30, snap.Refresh.Countdown)
}

func TestTick_CountdownTriggersFetch(t *testing.T) {
	client := newScriptedClient()
	seedFeed(client)
	clock := &mockTime{}
	clock.set("10:00:00")

	s := newTestScheduler(client, clock)
	s.ctx = context.Background()

	require.True(t, s.beginCycle())
	s.executeCycle(context.Background())
	callsAfterFirst := len(client.callLog())

	// 倒计时从 30 逐秒递减，归零触发下一周期
	s.mu.Lock()
	s.refresh.Countdown = 2
	s.mu.Unlock()

	s.tick()
	assert.Equal(t, 1, s.Snapshot().Refresh.Countdown)
	assert.Len(t, client.callLog(), callsAfterFirst)

	s.tick()
	require.Eventually(t, func() bool {
		snap := s.Snapshot()
		return !snap.Refresh.InFlight && len(client.callLog()) > callsAfterFirst
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, StateCountingDown, s.Snapshot().State)
}

func TestSnapshot_CopiesAreIsolated(t *testing.T) {
	client := newScriptedClient()
	seedFeed(client)
	clock := &mockTime{}
	clock.set("10:00:00")

	s := newTestScheduler(client, clock)
	require.True(t, s.beginCycle())
	s.executeCycle(context.Background())

	snap := s.Snapshot()
	snap.Quotes[0].Name = "篡改"
	snap.Sectors[0].Name = "篡改"

	fresh := s.Snapshot()
	assert.Equal(t, "南银转债", fresh.Quotes[0].Name)
	assert.Equal(t, "半导体", fresh.Sectors[0].Name)
}

func TestHistory_OrderedAcrossCycles(t *testing.T) {
	client := newScriptedClient()
	seedFeed(client)
	clock := &mockTime{}

	s := newTestScheduler(client, clock)

	// 多个周期按墙钟顺序采样，标签不乱序不重复
	for _, ts := range []string{"09:25:10", "09:27:00", "09:30:05", "09:30:40", "09:35:02"} {
		clock.set(ts)
		require.True(t, s.beginCycle())
		s.executeCycle(context.Background())
	}

	snap := s.Snapshot()
	var labels []string
	for _, h := range snap.History {
		labels = append(labels, h.Label)
	}
	assert.Equal(t, "09:25 09:30 09:35", strings.Join(labels, " "))
}

func TestResetHistory(t *testing.T) {
	client := newScriptedClient()
	seedFeed(client)
	clock := &mockTime{}
	clock.set("10:00:00")

	s := newTestScheduler(client, clock)
	require.True(t, s.beginCycle())
	s.executeCycle(context.Background())
	require.NotEmpty(t, s.Snapshot().History)

	s.ResetHistory()
	assert.Empty(t, s.Snapshot().History)
}
