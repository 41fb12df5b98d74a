package timing

import (
	"time"
)

// TimeService 提供当前时间接口，用于mock测试
type TimeService interface {
	Now() time.Time
}

// SystemTimeService 使用系统实际时间
type SystemTimeService struct{}

func (s *SystemTimeService) Now() time.Time {
	return time.Now()
}

// 交易时段边界（小时*100+分钟编码，两端均含）
// 上午时段: 09:25 - 11:31
// 下午时段: 13:00 - 15:05
const (
	morningOpen    = 925
	morningClose   = 1131
	afternoonOpen  = 1300
	afternoonClose = 1505
)

// MarketClock 提供市场交易时间检测功能
type MarketClock struct {
	timeService TimeService
}

// NewMarketClock 创建新的市场时间检测器
func NewMarketClock(timeService TimeService) *MarketClock {
	return &MarketClock{
		timeService: timeService,
	}
}

// DefaultMarketClock 使用系统时间的默认市场时间检测器
func DefaultMarketClock() *MarketClock {
	return NewMarketClock(&SystemTimeService{})
}

// Now 返回当前时间
func (m *MarketClock) Now() time.Time {
	return m.timeService.Now()
}

// IsTrading 判断给定时间是否在交易时段，只看时分不看日期
func IsTrading(t time.Time) bool {
	hhmm := t.Hour()*100 + t.Minute()

	return (hhmm >= morningOpen && hhmm <= morningClose) ||
		(hhmm >= afternoonOpen && hhmm <= afternoonClose)
}

// IsTradingNow 判断当前是否在交易时段
func (m *MarketClock) IsTradingNow() bool {
	return IsTrading(m.timeService.Now())
}
