package referral

import (
	"sync"

	"github.com/LeaguesOfHoleHoleShoes/BullBear/log"
	g_error "github.com/LeaguesOfHoleHoleShoes/BullBear/prediction/common/g-error"
	"go.uber.org/zap"
)

// 推荐关系登记处。独立于round engine部署，多个盘口实例可以共用同一张推荐关系图，
// 因此写操作只信任白名单里的合约地址，而不是外部用户
func NewRegistry(owner string, fee uint64, trusted []string) *Registry {
	r := &Registry{
		owner:     owner,
		fee:       fee,
		whitelist: map[string]bool{},
		referrer:  map[string]string{},
		referrals: map[string][]string{},
		balances:  map[string]uint64{},
	}
	for _, t := range trusted {
		r.whitelist[t] = true
	}
	return r
}

type Registry struct {
	mu sync.Mutex

	owner string
	// 千分比。0表示关闭返佣
	fee uint64

	// 可以写推荐关系的合约地址
	whitelist map[string]bool
	// 被推荐人 -> 推荐人，设置后不可变
	referrer map[string]string
	// 推荐人 -> 被推荐人列表，保持加入顺序
	referrals map[string][]string
	// 推荐人累积的未领取返佣
	balances map[string]uint64
}

// 建立推荐边。已有推荐人时静默忽略，不算错误。
// 防环只检查直接反向（A→B存在时拒绝B→A），更长的环不检测
func (r *Registry) ReferTo(contract, referred, referrer string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.whitelist[contract] {
		return g_error.ErrOnlyContracts
	}
	if referred == referrer {
		return g_error.ErrReferSelf
	}
	if _, ok := r.referrer[referred]; ok {
		return nil
	}
	if r.referrer[referrer] == referred {
		// 反向边，静默忽略
		return nil
	}

	r.referrer[referred] = referrer
	r.referrals[referrer] = append(r.referrals[referrer], referred)
	log.L.Debug("new referral edge", zap.String("referred", referred), zap.String("referrer", referrer))
	return nil
}

// 下注时由盘口调用，给被推荐人的推荐人记一笔返佣。
// 没有推荐人或费率为0时什么都不做。返回实际记账的数量
func (r *Registry) AccrueReward(contract, referred string, amount uint64) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.whitelist[contract] {
		return 0, g_error.ErrOnlyContracts
	}
	to, ok := r.referrer[referred]
	if !ok || r.fee == 0 {
		return 0, nil
	}
	reward := amount * r.fee / 1000
	r.balances[to] += reward
	return reward, nil
}

// 按当前费率计算某个押注额对应的返佣（整数截断）
func (r *Registry) CalculateReferralReward(amount uint64) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return amount * r.fee / 1000
}

// 把user的全部返佣余额清零并返回。余额为0不是错误，只是提不到钱
func (r *Registry) Withdraw(contract, user string) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.whitelist[contract] {
		return 0, g_error.ErrOnlyContracts
	}
	amount := r.balances[user]
	delete(r.balances, user)
	return amount, nil
}

// Withdraw之后出金失败时把余额加回来，避免返佣凭空丢失
func (r *Registry) Refund(contract, user string, amount uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.whitelist[contract] {
		return g_error.ErrOnlyContracts
	}
	r.balances[user] += amount
	return nil
}

func (r *Registry) RewardsAvailable(user string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balances[user]
}

func (r *Registry) IsWhitelisted(addr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.whitelist[addr]
}

func (r *Registry) IsAlreadyReferred(user string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.referrer[user]
	return ok
}

func (r *Registry) GetReferrer(user string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.referrer[user]
}

func (r *Registry) GetReferrals(user string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	rs := r.referrals[user]
	out := make([]string, len(rs))
	copy(out, rs)
	return out
}

func (r *Registry) ReferralFee() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fee
}

/* owner-only administration */

// 注意是toggle：已在白名单的地址会被移出
func (r *Registry) WhitelistContract(caller, addr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if caller != r.owner {
		return g_error.ErrNotOwner
	}
	if r.whitelist[addr] {
		delete(r.whitelist, addr)
	} else {
		r.whitelist[addr] = true
	}
	return nil
}

func (r *Registry) SetReferralFee(caller string, fee uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if caller != r.owner {
		return g_error.ErrNotOwner
	}
	if fee > 1000 {
		return g_error.ErrOutOfBounds
	}
	r.fee = fee
	return nil
}

func (r *Registry) DisableReferralFee(caller string) error {
	return r.SetReferralFee(caller, 0)
}

// 运维纠错用，绕过ReferTo的规则直接覆盖推荐边
func (r *Registry) SetReferrals(caller, referrer string, referred []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if caller != r.owner {
		return g_error.ErrNotOwner
	}
	for _, rd := range referred {
		if pre, ok := r.referrer[rd]; ok && pre != referrer {
			log.L.Warn("force overwrite referral edge", zap.String("referred", rd),
				zap.String("old", pre), zap.String("new", referrer))
		}
		r.referrer[rd] = referrer
		r.referrals[referrer] = appendIfMissing(r.referrals[referrer], rd)
	}
	return nil
}

func appendIfMissing(list []string, item string) []string {
	for _, x := range list {
		if x == item {
			return list
		}
	}
	return append(list, item)
}
