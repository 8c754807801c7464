package prediction

import (
	"testing"

	g_error "github.com/LeaguesOfHoleHoleShoes/BullBear/prediction/common/g-error"
	"github.com/stretchr/testify/assert"
)

const (
	tOwner    = "0xowner"
	tOperator = "0xoperator"
	tSelf     = "0xmarket"
	tUser1    = "0xuser1"
	tUser2    = "0xuser2"
	tUser3    = "0xuser3"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RewardRate = 93
	cfg.MinBetAmount = 100
	cfg.RoundInterval = 300
	cfg.RoundBuffer = 30
	return cfg
}

// 固定时钟的测试引擎，时间通过返回的指针推进
func newTestEngine() (*Engine, *MemBank, *int64) {
	bank := NewMemBank()
	e := NewEngine(tSelf, tOwner, tOperator, testConfig(), bank, nil)
	now := int64(1000000)
	e.clock = func() int64 { return now }
	return e, bank, &now
}

/*

正常节奏下的时间线（interval=300）：

  t=1000000  GenesisStart         回合1打开，下注窗口[1000000, 1000300)
  t=1000300  RoundLock            回合1锁定，回合2打开
  t=1000600  Execute              回合1收盘、回合2锁定、回合3打开
  t=1000900  Execute              回合2收盘、回合3锁定、回合4打开
  ...

*/

func TestEngine_GenesisStart(t *testing.T) {
	e, _, _ := newTestEngine()

	assert.Equal(t, g_error.ErrNotOperator, e.GenesisStart(tUser1))
	assert.Equal(t, uint64(0), e.CurrentEpoch())

	assert.NoError(t, e.GenesisStart(tOperator))
	assert.Equal(t, uint64(1), e.CurrentEpoch())

	r, ok := e.GetRound(1)
	assert.True(t, ok)
	assert.Equal(t, uint64(1), r.Epoch)
	assert.Equal(t, int64(1000000), r.StartTimestamp)
	assert.Equal(t, int64(1000300), r.LockTimestamp)
	assert.Equal(t, int64(1000600), r.CloseTimestamp)
	assert.True(t, r.Open())

	// 不能genesis两次
	assert.Equal(t, g_error.ErrGenesisDone, e.GenesisStart(tOperator))
	// 已经有open回合时也不能再start，保证同时只有一个可下注的回合
	assert.Equal(t, g_error.ErrAlreadyStarted, e.RoundStart(tOperator))
}

func TestEngine_RoundLock(t *testing.T) {
	e, _, now := newTestEngine()
	assert.NoError(t, e.GenesisStart(tOperator))

	assert.Equal(t, g_error.ErrNotOperator, e.RoundLock(tUser1, 1500, *now))
	// lockTime未到
	assert.Equal(t, g_error.ErrLockTooEarlyLate, e.RoundLock(tOperator, 1500, *now))
	// 非法价格
	*now += 300
	assert.Equal(t, g_error.ErrOutOfBounds, e.RoundLock(tOperator, 0, *now))

	assert.NoError(t, e.RoundLock(tOperator, 1500, *now))
	// 锁定和开新回合是耦合的
	assert.Equal(t, uint64(2), e.CurrentEpoch())

	r1, _ := e.GetRound(1)
	assert.True(t, r1.Locked())
	assert.Equal(t, int64(1500), r1.LockPrice)
	assert.Equal(t, *now, r1.LockPriceTimestamp)
	r2, _ := e.GetRound(2)
	assert.True(t, r2.Open())
	assert.Equal(t, *now, r2.StartTimestamp)
	assert.Equal(t, int64(1000900), r2.CloseTimestamp)

	// 刚开出的回合2要再等一个interval才能锁
	assert.Equal(t, g_error.ErrLockTooEarlyLate, e.RoundLock(tOperator, 1500, *now))
}

func TestEngine_Execute(t *testing.T) {
	e, _, now := newTestEngine()
	assert.NoError(t, e.FundsInject(tOwner, 10000))

	// 流水线没就绪时Execute必然失败
	assert.Equal(t, g_error.ErrNoStartableRound, e.Execute(tOperator, 1500, *now, 0, 0))
	assert.NoError(t, e.GenesisStart(tOperator))
	assert.Equal(t, g_error.ErrNoStartableRound, e.Execute(tOperator, 1500, *now, 0, 0))

	// 结算案例：bull 1000 / bear 500，1500 -> 1700
	assert.NoError(t, e.BetBull(tUser1, 1, 200))
	assert.NoError(t, e.BetBull(tUser2, 1, 800))
	assert.NoError(t, e.BetBear(tUser3, 1, 500))

	*now += 300
	assert.NoError(t, e.RoundLock(tOperator, 1500, *now))
	*now += 300

	// 喂价时间落在窗口外要整体拒绝，什么都不发生
	assert.Equal(t, g_error.ErrExecTooEarlyLate, e.Execute(tOperator, 1700, *now-100, 0, 0))
	assert.Equal(t, uint64(2), e.CurrentEpoch())
	r1, _ := e.GetRound(1)
	assert.False(t, r1.Closed)

	// 庄家押注违反比例限制同样整体拒绝
	assert.Equal(t, g_error.ErrHouseBetLimits, e.Execute(tOperator, 1700, *now, 1000, 850))
	assert.Equal(t, g_error.ErrNotOperator, e.Execute(tOwner, 1700, *now, 0, 0))

	assert.NoError(t, e.Execute(tOperator, 1700, *now, 1000, 900))
	assert.Equal(t, uint64(3), e.CurrentEpoch())

	// close回合1
	r1, _ = e.GetRound(1)
	assert.True(t, r1.Closed)
	assert.Equal(t, int64(1700), r1.ClosePrice)
	assert.Equal(t, *now, r1.ClosePriceTimestamp)
	assert.Equal(t, uint64(1000), r1.RewardBaseCalAmount)
	// (1000+500) * 93 / 100 = 1395
	assert.Equal(t, uint64(1395), r1.RewardAmount)

	// lock回合2
	r2, _ := e.GetRound(2)
	assert.True(t, r2.Locked())
	assert.Equal(t, int64(1700), r2.LockPrice)

	// start回合3并上庄家押注
	r3, _ := e.GetRound(3)
	assert.True(t, r3.Open())
	assert.Equal(t, uint64(1000), r3.BullAmount)
	assert.Equal(t, uint64(900), r3.BearAmount)

	// 流水线继续滚动
	*now += 300
	assert.NoError(t, e.Execute(tOperator, 1600, *now, 0, 0))
	assert.Equal(t, uint64(4), e.CurrentEpoch())
	r2, _ = e.GetRound(2)
	assert.True(t, r2.Closed)
	// 1700 -> 1600，bear胜，获胜方是空盘
	assert.Equal(t, uint64(0), r2.RewardBaseCalAmount)
	assert.Equal(t, uint64(0), r2.RewardAmount)
}

func TestEngine_HouseBetsWithinLimits(t *testing.T) {
	e, _, _ := newTestEngine()
	assert.NoError(t, e.SetHouseBetMinRatio(tOwner, 90))

	assert.True(t, e.HouseBetsWithinLimits(1000, 900))
	assert.True(t, e.HouseBetsWithinLimits(900, 1000))
	assert.False(t, e.HouseBetsWithinLimits(1000, 850))
	assert.False(t, e.HouseBetsWithinLimits(850, 1000))
	assert.True(t, e.HouseBetsWithinLimits(0, 0))
	assert.False(t, e.HouseBetsWithinLimits(1000, 0))

	// 大额时中间乘积回绕不能导致误判
	huge := uint64(1) << 60
	assert.True(t, e.HouseBetsWithinLimits(huge, huge))
	assert.False(t, e.HouseBetsWithinLimits(huge/2, huge))
	assert.True(t, e.HouseBetsWithinLimits(huge-huge/100, huge))
}

func TestEngine_HouseBet(t *testing.T) {
	e, _, _ := newTestEngine()
	assert.Equal(t, g_error.ErrNoStartableRound, e.HouseBet(tOperator, 500, 500))
	assert.NoError(t, e.GenesisStart(tOperator))

	// 余额不足
	assert.Equal(t, g_error.ErrInsufficientFunds, e.HouseBet(tOperator, 500, 500))
	assert.NoError(t, e.FundsInject(tOwner, 10000))
	assert.Equal(t, g_error.ErrHouseBetLimits, e.HouseBet(tOperator, 500, 100))
	assert.Equal(t, g_error.ErrNotOperator, e.HouseBet(tOwner, 500, 500))

	assert.NoError(t, e.HouseBet(tOperator, 500, 460))
	r, _ := e.GetRound(1)
	assert.Equal(t, uint64(500), r.BullAmount)
	assert.Equal(t, uint64(460), r.BearAmount)
}

func TestEngine_RoundCancel(t *testing.T) {
	e, _, now := newTestEngine()
	assert.NoError(t, e.GenesisStart(tOperator))

	assert.Equal(t, g_error.ErrRoundNotExist, e.RoundCancel(tOperator, 0, true, true))
	assert.Equal(t, g_error.ErrRoundNotExist, e.RoundCancel(tOperator, 9, true, true))
	assert.Equal(t, g_error.ErrNotOperator, e.RoundCancel(tUser1, 1, true, true))

	// 已收盘的回合也可以取消，closed标记会被清掉
	*now += 300
	assert.NoError(t, e.RoundLock(tOperator, 1500, *now))
	*now += 300
	assert.NoError(t, e.Execute(tOperator, 1700, *now, 0, 0))
	r1, _ := e.GetRound(1)
	assert.True(t, r1.Closed)

	assert.NoError(t, e.RoundCancel(tOperator, 1, true, false))
	r1, _ = e.GetRound(1)
	assert.True(t, r1.Canceled)
	assert.False(t, r1.Closed)
	assert.True(t, r1.RefundBull)
	assert.False(t, r1.RefundBear)
	assert.Equal(t, uint64(0), r1.RewardBaseCalAmount)

	assert.Equal(t, g_error.ErrAlreadyCanceled, e.RoundCancel(tOperator, 1, true, true))
}

// 恢复路径：open回合被取消后RoundStart可以重新开盘
func TestEngine_RoundStartRecovery(t *testing.T) {
	e, _, now := newTestEngine()
	assert.NoError(t, e.GenesisStart(tOperator))
	*now += 300
	assert.NoError(t, e.RoundLock(tOperator, 1500, *now))
	assert.Equal(t, uint64(2), e.CurrentEpoch())

	assert.Equal(t, g_error.ErrAlreadyStarted, e.RoundStart(tOperator))
	assert.NoError(t, e.RoundCancel(tOperator, 2, true, true))
	assert.NoError(t, e.RoundStart(tOperator))
	assert.Equal(t, uint64(3), e.CurrentEpoch())
	r3, _ := e.GetRound(3)
	assert.True(t, r3.Open())
}

func TestEngine_PausePolicy(t *testing.T) {
	e, _, now := newTestEngine()
	assert.NoError(t, e.GenesisStart(tOperator))
	assert.NoError(t, e.BetBull(tUser1, 1, 200))

	assert.Equal(t, g_error.ErrNotOperator, e.Pause(tOwner))
	assert.NoError(t, e.Pause(tOperator))
	assert.True(t, e.IsPaused())

	// 暂停期间一切推进和下注都被拒绝
	assert.Equal(t, g_error.ErrPaused, e.RoundStart(tOperator))
	assert.Equal(t, g_error.ErrPaused, e.RoundLock(tOperator, 1500, *now+300))
	assert.Equal(t, g_error.ErrPaused, e.Execute(tOperator, 1500, *now+300, 0, 0))
	assert.Equal(t, g_error.ErrPaused, e.HouseBet(tOperator, 0, 0))
	assert.Equal(t, g_error.ErrPaused, e.BetBear(tUser2, 1, 200))

	// 紧急恢复和用户出金不受影响
	assert.NoError(t, e.RoundCancel(tOperator, 1, true, true))
	paid, err := e.Claim(tUser1, []uint64{1})
	assert.NoError(t, err)
	assert.Equal(t, uint64(200), paid)

	assert.NoError(t, e.Unpause(tOperator))
	assert.False(t, e.IsPaused())
	assert.NoError(t, e.RoundStart(tOperator))
}

func TestEngine_PushSettlement(t *testing.T) {
	e, bank, now := newTestEngine()
	assert.NoError(t, e.GenesisStart(tOperator))
	assert.NoError(t, e.BetBull(tUser1, 1, 300))
	assert.NoError(t, e.BetBear(tUser2, 1, 500))

	*now += 300
	assert.NoError(t, e.RoundLock(tOperator, 1500, *now))
	*now += 300
	// 收盘价等于锁定价：push
	assert.NoError(t, e.Execute(tOperator, 1500, *now, 0, 0))

	r1, _ := e.GetRound(1)
	assert.True(t, r1.Closed)
	assert.Equal(t, uint64(0), r1.RewardBaseCalAmount)
	assert.Equal(t, uint64(0), r1.RewardAmount)

	// 两边都按退款处理，各拿回本金
	paid, err := e.Claim(tUser1, []uint64{1})
	assert.NoError(t, err)
	assert.Equal(t, uint64(300), paid)
	paid, err = e.Claim(tUser2, []uint64{1})
	assert.NoError(t, err)
	assert.Equal(t, uint64(500), paid)
	assert.Equal(t, uint64(300), bank.BalanceOf(tUser1))
	assert.Equal(t, uint64(500), bank.BalanceOf(tUser2))
}
