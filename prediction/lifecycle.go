package prediction

import (
	"math"
	"math/bits"

	"github.com/LeaguesOfHoleHoleShoes/BullBear/log"
	"github.com/LeaguesOfHoleHoleShoes/BullBear/metrics"
	g_error "github.com/LeaguesOfHoleHoleShoes/BullBear/prediction/common/g-error"
	"github.com/LeaguesOfHoleHoleShoes/BullBear/prediction/model"
	"go.uber.org/zap"
)

/*

回合流水线是滚动的三段式：同一时刻最多有一个open回合、一个locked回合、
若干已收盘的回合。正常节奏是：

  GenesisStart -> RoundLock(锁1号并开出2号) -> Execute(收1号、锁2号、开3号) -> Execute ...

Execute不依赖pause/unpause来补启动，卡住时的恢复路径是把打开着的回合
RoundCancel掉，再RoundStart开新的epoch

*/

// 单边奖池上限。保证bull+bear以及总池乘费率都不会越过uint64
const maxSideAmount = math.MaxUint64 / 2

// 只在epoch 0可用，播种1号回合
func (e *Engine) GenesisStart(caller string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOperator(caller); err != nil {
		return err
	}
	if e.paused {
		return g_error.ErrPaused
	}
	if e.currentEpoch != 0 {
		return g_error.ErrGenesisDone
	}
	e.startRound()
	return nil
}

// 恢复入口。只有最新回合不再open（被锁定、收盘或取消）时才允许，
// 保证任何时刻至多一个started-but-unlocked回合
func (e *Engine) RoundStart(caller string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOperator(caller); err != nil {
		return err
	}
	if e.paused {
		return g_error.ErrPaused
	}
	if e.currentEpoch == 0 {
		return g_error.ErrNoStartableRound
	}
	if e.rounds[e.currentEpoch].Open() {
		return g_error.ErrAlreadyStarted
	}
	e.startRound()
	return nil
}

// 持锁调用。追加一个新回合并推进currentEpoch
func (e *Engine) startRound() {
	now := e.clock()
	e.currentEpoch++
	e.rounds = append(e.rounds, model.Round{
		Epoch:          e.currentEpoch,
		StartTimestamp: now,
		LockTimestamp:  now + e.cfg.RoundInterval,
		CloseTimestamp: now + 2*e.cfg.RoundInterval,
	})
	metrics.CurrentEpoch.Set(float64(e.currentEpoch))
	log.L.Info("round started", zap.Uint64("epoch", e.currentEpoch))
}

// 锁定当前open回合并立刻开出下一回合。二者耦合在一个原子操作里，
// 锁定之后永远有一个刚开出的回合可押
func (e *Engine) RoundLock(caller string, price int64, priceTime int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOperator(caller); err != nil {
		return err
	}
	if e.paused {
		return g_error.ErrPaused
	}
	if e.currentEpoch == 0 || !e.rounds[e.currentEpoch].Open() {
		return g_error.ErrNoStartableRound
	}
	if price <= 0 {
		return g_error.ErrOutOfBounds
	}
	cur := &e.rounds[e.currentEpoch]
	if priceTime < cur.LockTimestamp {
		return g_error.ErrLockTooEarlyLate
	}
	cur.LockPrice = price
	cur.LockPriceTimestamp = priceTime
	log.L.Info("round locked", zap.Uint64("epoch", cur.Epoch), zap.Int64("lock price", price))

	e.startRound()
	return nil
}

// 主结算步骤，原子地做四件事：收盘epoch N-1、用同一份喂价锁定epoch N、
// 开出epoch N+1、把庄家押注记到新回合上。任何一步失败整个调用无效
func (e *Engine) Execute(caller string, price int64, priceTime int64, houseBull, houseBear uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOperator(caller); err != nil {
		return err
	}
	if e.paused {
		return g_error.ErrPaused
	}
	if price <= 0 {
		return g_error.ErrOutOfBounds
	}
	if e.currentEpoch < 2 {
		return g_error.ErrNoStartableRound
	}

	closing := &e.rounds[e.currentEpoch-1]
	locking := &e.rounds[e.currentEpoch]
	if !closing.Locked() || !locking.Open() {
		return g_error.ErrNoStartableRound
	}
	// 喂价时间必须落在两个回合边界的buffer窗口内，早了晚了都整体拒绝
	if !withinWindow(priceTime, closing.CloseTimestamp, e.cfg.RoundBuffer) ||
		!withinWindow(priceTime, locking.LockTimestamp, e.cfg.RoundBuffer) {
		return g_error.ErrExecTooEarlyLate
	}
	if houseBull > maxSideAmount || houseBear > maxSideAmount {
		return g_error.ErrOutOfBounds
	}
	if !e.houseBetsWithinLimits(houseBull, houseBear) {
		return g_error.ErrHouseBetLimits
	}
	if houseBull+houseBear > e.balance {
		return g_error.ErrInsufficientFunds
	}

	e.closeRound(closing, price, priceTime)

	locking.LockPrice = price
	locking.LockPriceTimestamp = priceTime

	e.startRound()
	started := &e.rounds[e.currentEpoch]
	started.BullAmount += houseBull
	started.BearAmount += houseBear

	log.L.Info("executed settlement step",
		zap.Uint64("closed", closing.Epoch), zap.Uint64("locked", locking.Epoch),
		zap.Uint64("started", started.Epoch), zap.Int64("price", price))
	return nil
}

// 持锁调用。结算一个已锁定的回合
func (e *Engine) closeRound(r *model.Round, price int64, priceTime int64) {
	r.ClosePrice = price
	r.ClosePriceTimestamp = priceTime
	r.Closed = true

	switch r.Winner() {
	case 1:
		r.RewardBaseCalAmount = r.BullAmount
	case -1:
		r.RewardBaseCalAmount = r.BearAmount
	default:
		// push：无人获胜，留给claim按退款处理
		r.RewardBaseCalAmount = 0
	}
	if r.RewardBaseCalAmount > 0 {
		r.RewardAmount = mulDiv(r.BullAmount+r.BearAmount, e.cfg.RewardRate, 100)
	}

	if err := e.db.SaveRound(*r); err != nil {
		log.L.Error("save closed round failed", zap.Uint64("epoch", r.Epoch), zap.Error(err))
	}
}

// 把一个无法公平结算的回合标记为取消。不受时间窗限制，
// 已收盘的回合也可以取消（会清掉closed标记），pause期间同样可用
func (e *Engine) RoundCancel(caller string, epoch uint64, refundBull, refundBear bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOperator(caller); err != nil {
		return err
	}
	if epoch == 0 || epoch > e.currentEpoch {
		return g_error.ErrRoundNotExist
	}
	r := &e.rounds[epoch]
	if r.Canceled {
		return g_error.ErrAlreadyCanceled
	}
	r.Canceled = true
	r.Closed = false
	r.RefundBull = refundBull
	r.RefundBear = refundBear
	r.RewardBaseCalAmount = 0
	r.RewardAmount = 0

	if err := e.db.SaveRound(*r); err != nil {
		log.L.Error("save canceled round failed", zap.Uint64("epoch", epoch), zap.Error(err))
	}
	log.L.Warn("round canceled", zap.Uint64("epoch", epoch),
		zap.Bool("refund bull", refundBull), zap.Bool("refund bear", refundBear))
	return nil
}

// 庄家押注必须两边都有，较小一边至少是较大一边的ratio%，
// 防止单边泵注稳赚的退化情况
func (e *Engine) HouseBetsWithinLimits(a, b uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.houseBetsWithinLimits(a, b)
}

func (e *Engine) houseBetsWithinLimits(a, b uint64) bool {
	min, max := a, b
	if min > max {
		min, max = max, min
	}
	// 128位比较，大额时乘积回绕会误判
	lHi, lLo := bits.Mul64(min, 100)
	rHi, rLo := bits.Mul64(max, e.cfg.HouseBetMinRatio)
	return lHi > rHi || (lHi == rHi && lLo >= rLo)
}

// 单独给当前open回合上庄家押注，GenesisStart到第一次锁定之间用它铺底仓
func (e *Engine) HouseBet(caller string, bull, bear uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOperator(caller); err != nil {
		return err
	}
	if e.paused {
		return g_error.ErrPaused
	}
	if e.currentEpoch == 0 || !e.rounds[e.currentEpoch].Open() {
		return g_error.ErrNoStartableRound
	}
	r := &e.rounds[e.currentEpoch]
	if bull > maxSideAmount-r.BullAmount || bear > maxSideAmount-r.BearAmount {
		return g_error.ErrOutOfBounds
	}
	if !e.houseBetsWithinLimits(bull, bear) {
		return g_error.ErrHouseBetLimits
	}
	if bull+bear > e.balance {
		return g_error.ErrInsufficientFunds
	}
	r.BullAmount += bull
	r.BearAmount += bear
	return nil
}

func withinWindow(ts, boundary, buffer int64) bool {
	return ts >= boundary-buffer && ts <= boundary+buffer
}

/* round queries */

func (e *Engine) CurrentEpoch() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentEpoch
}

func (e *Engine) GetRound(epoch uint64) (model.Round, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if epoch == 0 || epoch > e.currentEpoch {
		return model.Round{}, false
	}
	return e.rounds[epoch], true
}
