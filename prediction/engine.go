package prediction

import (
	"sync"
	"time"

	"github.com/LeaguesOfHoleHoleShoes/BullBear/log"
	"github.com/LeaguesOfHoleHoleShoes/BullBear/metrics"
	g_error "github.com/LeaguesOfHoleHoleShoes/BullBear/prediction/common/g-error"
	"github.com/LeaguesOfHoleHoleShoes/BullBear/prediction/model"
	"github.com/LeaguesOfHoleHoleShoes/BullBear/referral"
	"go.uber.org/zap"
)

// 出金通道。引擎自己记账合约余额，真正把钱打给用户由宿主账本完成
type Bank interface {
	Transfer(to string, amount uint64) error
}

func NewEngine(selfAddr, owner, operator string, cfg Config, bank Bank, db Database) *Engine {
	if err := cfg.validate(); err != nil {
		panic("invalid engine config: " + err.Error())
	}
	if db == nil {
		db = noopDB{}
	}
	return &Engine{
		selfAddr: selfAddr,
		owner:    owner,
		operator: operator,
		cfg:      cfg,
		bank:     bank,
		db:       db,
		// rounds[0]不用，epoch从1开始
		rounds:     []model.Round{{}},
		bets:       map[string]map[uint64]*model.Bet{},
		userRounds: map[string][]uint64{},
		blacklist:  map[string]bool{},
		clock:      func() int64 { return time.Now().Unix() },
	}
}

// 一个盘口实例。所有操作都拿同一把锁，等价于宿主账本对交易的串行化：
// 每个操作要么完整生效要么整体失败，不存在部分可见的中间态
type Engine struct {
	mu sync.Mutex

	// 本实例在推荐登记处白名单中的身份
	selfAddr string
	owner    string
	operator string

	cfg    Config
	paused bool

	bank    Bank
	db      Database
	balance uint64

	// epoch -> round，append-only
	rounds       []model.Round
	currentEpoch uint64

	// user -> epoch -> bet
	bets map[string]map[uint64]*model.Bet
	// 每个用户按下注顺序记录的epoch列表，支撑分页查询
	userRounds map[string][]uint64

	blacklist map[string]bool

	// 只能绑定一次
	referrals     *referral.Registry
	referralsAddr string

	// 测试时会替换
	clock func() int64
}

func (e *Engine) requireOwner(caller string) error {
	if caller != e.owner || e.owner == "" {
		return g_error.ErrNotOwner
	}
	return nil
}

func (e *Engine) requireOperator(caller string) error {
	if caller != e.operator {
		return g_error.ErrNotOperator
	}
	return nil
}

/* treasury */

// owner注资，作为派奖和庄家押注的后盾
func (e *Engine) FundsInject(caller string, value uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	e.balance += value
	metrics.TreasuryBalance.Set(float64(e.balance))
	return nil
}

func (e *Engine) FundsExtract(caller string, amount uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	return e.payOut(e.owner, amount)
}

// 绕过claim流程直接给用户打钱，运维补偿用
func (e *Engine) RewardUser(caller, user string, amount uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	return e.payOut(user, amount)
}

// 持锁调用。先划账再出金，转账失败则回滚余额
func (e *Engine) payOut(to string, amount uint64) error {
	if amount > e.balance {
		return g_error.ErrInsufficientFunds
	}
	e.balance -= amount
	if err := e.bank.Transfer(to, amount); err != nil {
		e.balance += amount
		return err
	}
	metrics.TreasuryBalance.Set(float64(e.balance))
	return nil
}

func (e *Engine) Balance() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.balance
}

/* blacklist */

func (e *Engine) BlackListInsert(caller, addr string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	if e.blacklist[addr] {
		return g_error.ErrAlreadyBlacklisted
	}
	e.blacklist[addr] = true
	return nil
}

// 幂等，移除不存在的地址不算错误
func (e *Engine) BlackListRemove(caller, addr string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	delete(e.blacklist, addr)
	return nil
}

func (e *Engine) IsBlacklisted(addr string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.blacklist[addr]
}

/* pause */

func (e *Engine) Pause(caller string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOperator(caller); err != nil {
		return err
	}
	e.paused = true
	log.L.Warn("engine paused", zap.String("self", e.selfAddr))
	return nil
}

func (e *Engine) Unpause(caller string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOperator(caller); err != nil {
		return err
	}
	e.paused = false
	log.L.Info("engine unpaused", zap.String("self", e.selfAddr))
	return nil
}

func (e *Engine) IsPaused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

/* parameter setters */

func (e *Engine) ChangePriceSource(caller, src string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	e.cfg.PriceSource = src
	return nil
}

func (e *Engine) SetRewardRate(caller string, rate uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	if rate > 100 {
		return g_error.ErrOutOfBounds
	}
	e.cfg.RewardRate = rate
	return nil
}

func (e *Engine) SetMinBetAmount(caller string, amount uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	e.cfg.MinBetAmount = amount
	return nil
}

func (e *Engine) SetHouseBetMinRatio(caller string, ratio uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	if ratio < 1 || ratio > 99 {
		return g_error.ErrOutOfBounds
	}
	e.cfg.HouseBetMinRatio = ratio
	return nil
}

// 回合节奏属于日常运营，由operator调整
func (e *Engine) SetRoundBufferAndInterval(caller string, buffer, interval int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOperator(caller); err != nil {
		return err
	}
	if buffer <= 0 || interval <= 0 || buffer >= interval {
		return g_error.ErrOutOfBounds
	}
	e.cfg.RoundBuffer = buffer
	e.cfg.RoundInterval = interval
	return nil
}

func (e *Engine) SetOperator(caller, operator string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	e.operator = operator
	return nil
}

func (e *Engine) OwnershipTransfer(caller, newOwner string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	e.owner = newOwner
	log.L.Warn("ownership transferred", zap.String("new owner", newOwner))
	return nil
}

// 之后所有owner-only操作都会失败
func (e *Engine) OwnershipRenounce(caller string) error {
	return e.OwnershipTransfer(caller, "")
}

// 只能绑定一次
func (e *Engine) SetReferralsContract(caller, addr string, reg *referral.Registry) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	if e.referrals != nil {
		return g_error.ErrReferralsAddrSet
	}
	e.referrals = reg
	e.referralsAddr = addr
	return nil
}

/* queries */

func (e *Engine) Owner() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.owner
}

func (e *Engine) OperatorAddress() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.operator
}

func (e *Engine) CurrentSettings() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

func (e *Engine) PriceSource() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg.PriceSource
}
