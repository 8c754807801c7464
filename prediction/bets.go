package prediction

import (
	"fmt"
	"math/bits"

	"github.com/LeaguesOfHoleHoleShoes/BullBear/log"
	"github.com/LeaguesOfHoleHoleShoes/BullBear/metrics"
	g_error "github.com/LeaguesOfHoleHoleShoes/BullBear/prediction/common/g-error"
	"github.com/LeaguesOfHoleHoleShoes/BullBear/prediction/model"
	"go.uber.org/zap"
)

func (e *Engine) BetBull(caller string, epoch uint64, value uint64) error {
	return e.placeBet(caller, epoch, model.PositionBull, value, "")
}

func (e *Engine) BetBear(caller string, epoch uint64, value uint64) error {
	return e.placeBet(caller, epoch, model.PositionBear, value, "")
}

// 带推荐人的下注。推荐边只在被推荐人第一次带referrer下注时建立，之后不可变
func (e *Engine) BetBullWithReferrer(caller string, epoch uint64, value uint64, referrer string) error {
	return e.placeBet(caller, epoch, model.PositionBull, value, referrer)
}

func (e *Engine) BetBearWithReferrer(caller string, epoch uint64, value uint64, referrer string) error {
	return e.placeBet(caller, epoch, model.PositionBear, value, referrer)
}

func (e *Engine) placeBet(caller string, epoch uint64, position int, value uint64, referrer string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.paused {
		return g_error.ErrPaused
	}
	if e.blacklist[caller] {
		return g_error.ErrBlacklisted
	}
	if epoch != e.currentEpoch || e.currentEpoch == 0 {
		return g_error.ErrBetTooEarlyLate
	}
	r := &e.rounds[epoch]
	now := e.clock()
	if !r.Open() || now < r.StartTimestamp || now >= r.LockTimestamp {
		return g_error.ErrBetTooEarlyLate
	}
	if value < e.cfg.MinBetAmount {
		return g_error.ErrBetTooSmall
	}
	if position == model.PositionBull && value > maxSideAmount-r.BullAmount ||
		position == model.PositionBear && value > maxSideAmount-r.BearAmount {
		return g_error.ErrOutOfBounds
	}
	if _, ok := e.bets[caller][epoch]; ok {
		return g_error.ErrRoundNotBettable
	}

	// 推荐关系在入账之前处理，refer self这类错误要让整笔下注失败
	if referrer != "" {
		if e.referrals == nil {
			return g_error.ErrReferralsNotBound
		}
		if err := e.referrals.ReferTo(e.selfAddr, caller, referrer); err != nil {
			return err
		}
	}

	bet := &model.Bet{UserAddress: caller, Epoch: epoch, Position: position, Amount: value}
	if e.bets[caller] == nil {
		e.bets[caller] = map[uint64]*model.Bet{}
	}
	e.bets[caller][epoch] = bet
	e.userRounds[caller] = append(e.userRounds[caller], epoch)
	if position == model.PositionBull {
		r.BullAmount += value
		metrics.BetsPlaced.WithLabelValues("bull").Inc()
	} else {
		r.BearAmount += value
		metrics.BetsPlaced.WithLabelValues("bear").Inc()
	}
	// 押注附带的价值进入合约托管
	e.balance += value
	metrics.TreasuryBalance.Set(float64(e.balance))

	// 返佣在下注时点累积，与回合输赢无关
	if e.referrals != nil {
		if _, err := e.referrals.AccrueReward(e.selfAddr, caller, value); err != nil {
			log.L.Error("accrue referral reward failed", zap.String("user", caller), zap.Error(err))
		}
	}

	if err := e.db.SaveBet(*bet); err != nil {
		log.L.Error("save bet failed", zap.String("user", caller), zap.Uint64("epoch", epoch), zap.Error(err))
	}
	return nil
}

/*

批量claim是整体原子的：先把每个epoch都校验、算好应付金额，任何一个
不合格就带着epoch号整体报错；全部合格才划账、打一笔总额、落claimed标记

*/
func (e *Engine) Claim(caller string, epochs []uint64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	type due struct {
		bet    *model.Bet
		amount uint64
		refund bool
	}
	var total uint64
	dues := make([]due, 0, len(epochs))
	seen := make(map[uint64]bool, len(epochs))
	for _, ep := range epochs {
		// 同一批里重复出现的epoch按已领取对待，否则校验阶段会通过两次
		if seen[ep] {
			return 0, claimErr(ep, g_error.ErrNotEligible)
		}
		seen[ep] = true
		bet, ok := e.bets[caller][ep]
		if !ok || bet.Claimed {
			return 0, claimErr(ep, g_error.ErrNotEligible)
		}
		r := &e.rounds[ep]
		if !r.Resolved() {
			return 0, claimErr(ep, g_error.ErrRoundNotEnded)
		}
		amount, refund, err := e.claimableAmount(r, bet)
		if err != nil {
			return 0, claimErr(ep, err)
		}
		dues = append(dues, due{bet: bet, amount: amount, refund: refund})
		total += amount
	}
	if total > e.balance {
		return 0, g_error.ErrInsufficientFunds
	}

	e.balance -= total
	if err := e.bank.Transfer(caller, total); err != nil {
		e.balance += total
		return 0, err
	}
	for _, d := range dues {
		d.bet.Claimed = true
		metrics.ClaimsPaid.Add(float64(d.amount))
		if err := e.db.SavePayout(model.Payout{
			UserAddress: caller, Epoch: d.bet.Epoch, Amount: d.amount, Refund: d.refund,
		}); err != nil {
			log.L.Error("save payout failed", zap.Uint64("epoch", d.bet.Epoch), zap.Error(err))
		}
	}
	metrics.TreasuryBalance.Set(float64(e.balance))
	return total, nil
}

// 持锁调用。算一条bet在已resolved回合里的应付金额
func (e *Engine) claimableAmount(r *model.Round, bet *model.Bet) (uint64, bool, error) {
	if r.Canceled {
		refundable := (bet.Position == model.PositionBull && r.RefundBull) ||
			(bet.Position == model.PositionBear && r.RefundBear)
		if !refundable {
			return 0, false, g_error.ErrNotEligible
		}
		return bet.Amount, true, nil
	}

	winner := r.Winner()
	if winner == 0 {
		// push：平局按全额退款处理
		return bet.Amount, true, nil
	}
	won := (winner == 1 && bet.Position == model.PositionBull) ||
		(winner == -1 && bet.Position == model.PositionBear)
	if !won || r.RewardBaseCalAmount == 0 {
		return 0, false, g_error.ErrNotEligible
	}
	return mulDiv(bet.Amount, r.RewardAmount, r.RewardBaseCalAmount), false, nil
}

// a*b/den，中间积走128位，大额押注不回绕。
// 调用方保证den>0且商放得进uint64（a<=den，或b<=den）
func mulDiv(a, b, den uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	q, _ := bits.Div64(hi, lo, den)
	return q
}

func claimErr(epoch uint64, cause error) error {
	return g_error.New(g_error.KindOf(cause), fmt.Sprintf("epoch %d: %s", epoch, cause.Error()))
}

/* referral operations through the engine */

// 查询推荐返佣余额。未绑定登记处时恒为0
func (e *Engine) ReferralRewardsAvailable(user string) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.referrals == nil {
		return 0
	}
	return e.referrals.RewardsAvailable(user)
}

// 一次提走全部返佣。余额为0是成功的no-op
func (e *Engine) ReferralFundsClaim(caller string) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.referrals == nil {
		return 0, g_error.ErrReferralsNotBound
	}
	amount, err := e.referrals.Withdraw(e.selfAddr, caller)
	if err != nil {
		return 0, err
	}
	if amount == 0 {
		return 0, nil
	}
	if err := e.payOut(caller, amount); err != nil {
		// 出金失败要把余额还回登记处，否则用户的返佣就凭空消失了
		e.referrals.Refund(e.selfAddr, caller, amount)
		return 0, err
	}
	return amount, nil
}

/* history queries */

func (e *Engine) GetUserRoundsLength(user string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.userRounds[user])
}

// 半开区间[offset, offset+count)的分页查询，越界部分自动截断
func (e *Engine) GetUserRounds(user string, offset, count int) []model.Bet {
	e.mu.Lock()
	defer e.mu.Unlock()
	rounds := e.userRounds[user]
	if offset < 0 || count <= 0 || offset >= len(rounds) {
		return nil
	}
	end := offset + count
	if end > len(rounds) {
		end = len(rounds)
	}
	out := make([]model.Bet, 0, end-offset)
	for _, ep := range rounds[offset:end] {
		out = append(out, *e.bets[user][ep])
	}
	return out
}

func (e *Engine) GetUserBet(user string, epoch uint64) (model.Bet, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if b, ok := e.bets[user][epoch]; ok {
		return *b, true
	}
	return model.Bet{}, false
}
