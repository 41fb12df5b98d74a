// Package scheduler 实现交易时间感知的行情刷新调度器。
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"sectorpulse/pkg/history"
	"sectorpulse/pkg/logger"
	"sectorpulse/pkg/market"
	"sectorpulse/pkg/provider"
	"sectorpulse/pkg/ranker"
	"sectorpulse/pkg/timing"
)

// RefreshScheduler 刷新调度器
// 持有刷新状态机与历史序列，1 秒 tick 驱动倒计时；
// 同一时刻至多一个刷新周期在途（in-flight 标记串行化定时与手动触发）。
type RefreshScheduler struct {
	mu      sync.RWMutex
	cfg     Config
	client  provider.QuoteClient
	clock   *timing.MarketClock
	log     *logrus.Entry
	onCycle CycleHook

	state   State
	refresh market.RefreshState
	quotes  []market.Quote
	sectors []market.SectorSnapshot
	history []market.HistorySnapshot

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New 创建刷新调度器
func New(client provider.QuoteClient, clock *timing.MarketClock, cfg Config) *RefreshScheduler {
	if clock == nil {
		clock = timing.DefaultMarketClock()
	}

	return &RefreshScheduler{
		cfg:    cfg,
		client: client,
		clock:  clock,
		log:    logger.WithComponent("RefreshScheduler"),
		state:  StateIdle,
		refresh: market.RefreshState{
			AutoRefresh: true,
		},
	}
}

// SetOnCycle 注册周期完成回调（需在 Start 前调用）
func (s *RefreshScheduler) SetOnCycle(hook CycleHook) {
	s.onCycle = hook
}

// Start 启动调度循环并立即触发首轮抓取
func (s *RefreshScheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.Refresh()

	s.wg.Add(1)
	go s.run()

	s.log.Infof("调度器已启动: 交易间隔 %ds, 非交易间隔 %ds", s.cfg.TradingInterval, s.cfg.IdleInterval)
	return nil
}

// Stop 停止调度器，等待在途周期结束
func (s *RefreshScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.log.Infof("调度器已停止")
}

// Refresh 手动触发一次刷新
// 已有周期在途时为空操作，返回 false
func (s *RefreshScheduler) Refresh() bool {
	if !s.beginCycle() {
		s.log.Warnf("刷新周期进行中，忽略手动触发")
		return false
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.executeCycle(s.ctx)
	}()
	return true
}

// SetAutoRefresh 开关自动刷新
// 关闭即取消当前倒计时；重新开启从全新倒计时开始，不续用旧值
func (s *RefreshScheduler) SetAutoRefresh(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refresh.AutoRefresh == enabled {
		return
	}
	s.refresh.AutoRefresh = enabled

	if !enabled {
		if s.state == StateCountingDown {
			s.state = StatePaused
		}
		s.refresh.Countdown = 0
		s.log.Infof("自动刷新已关闭")
		return
	}

	if s.state == StatePaused || s.state == StateIdle {
		s.state = StateCountingDown
		s.refresh.Countdown = s.intervalFor(s.clock.Now())
	}
	s.log.Infof("自动刷新已开启, 倒计时 %ds", s.refresh.Countdown)
}

// ResetHistory 清空历史采样序列（每个交易日开盘前由定时任务调用）
func (s *RefreshScheduler) ResetHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	s.log.Infof("历史采样已清空")
}

// Snapshot 返回当前状态的只读副本
// 切片为浅拷贝：Leaders 指针与历史采样的 map 仍与调度器共享，
// 这些对象在周期内创建后不再修改，读取方同样不得修改
func (s *RefreshScheduler) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		State:   s.state,
		Refresh: s.refresh,
		Quotes:  make([]market.Quote, len(s.quotes)),
		Sectors: make([]market.SectorSnapshot, len(s.sectors)),
		History: make([]market.HistorySnapshot, len(s.history)),
	}
	copy(snap.Quotes, s.quotes)
	copy(snap.Sectors, s.sectors)
	copy(snap.History, s.history)
	return snap
}

// run 调度主循环，1 秒 tick 驱动倒计时
func (s *RefreshScheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick 单次倒计时步进，归零时触发新周期
func (s *RefreshScheduler) tick() {
	s.mu.Lock()
	s.refresh.Trading = timing.IsTrading(s.clock.Now())

	if s.state != StateCountingDown || !s.refresh.AutoRefresh || s.refresh.InFlight {
		s.mu.Unlock()
		return
	}

	if s.refresh.Countdown > 0 {
		s.refresh.Countdown--
	}
	expired := s.refresh.Countdown == 0
	s.mu.Unlock()

	if expired {
		s.Refresh()
	}
}

// beginCycle 尝试进入抓取状态，in-flight 保护防止周期重叠
func (s *RefreshScheduler) beginCycle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refresh.InFlight {
		return false
	}

	s.refresh.InFlight = true
	s.state = StateFetching
	s.refresh.Countdown = 0
	return true
}

// executeCycle 执行一个完整刷新周期并落盘结果
// 调用前必须已通过 beginCycle 拿到在途标记
func (s *RefreshScheduler) executeCycle(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	cycleID := uuid.NewString()[:8]
	start := s.clock.Now()

	quotes, sectors := s.fetchAll(ctx, cycleID)
	s.completeCycle(cycleID, quotes, sectors)

	s.log.Debugf("[%s] 刷新周期完成, 耗时 %v", cycleID, s.clock.Now().Sub(start))
}

// fetchAll 依次抓取主列表、板块列表及各板块成分
// 任何一步失败都按"本周期无数据"处理，周期照常走完
func (s *RefreshScheduler) fetchAll(ctx context.Context, cycleID string) ([]market.Quote, []market.SectorSnapshot) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	quotes, err := s.client.FetchQuotes(ctx, provider.QuoteRequest{
		Filter:    s.cfg.PrimaryFilter,
		Limit:     s.cfg.PrimaryLimit,
		SortField: s.cfg.SortField,
	})
	if err != nil {
		s.log.Warnf("[%s] 主列表抓取失败: %v", cycleID, err)
		quotes = nil
	}

	rawSectors, err := s.client.FetchQuotes(ctx, provider.QuoteRequest{
		Filter:    s.cfg.SectorFilter,
		Limit:     s.cfg.SectorLimit,
		SortField: s.cfg.SortField,
	})
	if err != nil {
		s.log.Warnf("[%s] 板块列表抓取失败: %v", cycleID, err)
		rawSectors = nil
	}

	sectors := make([]market.SectorSnapshot, 0, len(rawSectors))
	for _, sec := range rawSectors {
		snapshot := market.SectorSnapshot{
			Code:          sec.Code,
			Name:          sec.Name,
			ChangePercent: sec.ChangePercent,
		}

		members, err := s.client.FetchQuotes(ctx, provider.QuoteRequest{
			Filter:    s.cfg.MemberPrefix + sec.Code,
			Limit:     s.cfg.MemberLimit,
			SortField: s.cfg.SortField,
		})
		if err != nil {
			s.log.Warnf("[%s] 板块 %s 成分抓取失败: %v", cycleID, sec.Name, err)
			members = nil
		}

		snapshot.Leaders = ranker.RankLeaders(members)
		sectors = append(sectors, snapshot)
	}

	return quotes, sectors
}

// completeCycle 周期收尾：更新数据、采样历史、按交易状态重置倒计时
// 成败与否都会回到倒计时，保证轮询节奏不因故障中断
func (s *RefreshScheduler) completeCycle(cycleID string, quotes []market.Quote, sectors []market.SectorSnapshot) {
	now := s.clock.Now()

	s.mu.Lock()
	if len(quotes) > 0 {
		s.quotes = quotes
	}
	if len(sectors) > 0 {
		s.sectors = sectors
	}
	s.history = history.MaybeSample(now, sectors, s.history)

	s.refresh.Trading = timing.IsTrading(now)
	s.refresh.Countdown = s.intervalFor(now)
	s.refresh.LastUpdate = now
	s.refresh.InFlight = false

	if s.refresh.AutoRefresh {
		s.state = StateCountingDown
	} else {
		s.state = StatePaused
		s.refresh.Countdown = 0
	}

	result := CycleResult{
		ID:        cycleID,
		Timestamp: now,
		Trading:   s.refresh.Trading,
		Quotes:    s.quotes,
		Sectors:   s.sectors,
		History:   s.history,
	}
	hook := s.onCycle
	countdown := s.refresh.Countdown
	s.mu.Unlock()

	s.log.Infof("[%s] 数据已更新: %d 只标的, %d 个板块, 下次刷新 %ds 后",
		cycleID, len(result.Quotes), len(result.Sectors), countdown)

	if hook != nil {
		hook(result)
	}
}

// intervalFor 按交易状态决定下次刷新间隔
func (s *RefreshScheduler) intervalFor(now time.Time) int {
	if timing.IsTrading(now) {
		return s.cfg.TradingInterval
	}
	return s.cfg.IdleInterval
}
