package prediction

import (
	g_error "github.com/LeaguesOfHoleHoleShoes/BullBear/prediction/common/g-error"
)

// 引擎的全部可变配置。构造时注入，之后只通过engine上的setter修改，
// 修改只对之后的回合生效，不会回溯
type Config struct {
	// 喂价来源，只做展示用，引擎从不自己去取价
	PriceSource string `json:"price_source"`
	// 奖池分给获胜方的百分比，[0,100]
	RewardRate uint64 `json:"reward_rate"`
	// 用户单笔最小押注
	MinBetAmount uint64 `json:"min_bet_amount"`
	// 庄家两边押注中较小一边至少是较大一边的百分之几，[1,99]
	HouseBetMinRatio uint64 `json:"house_bet_min_ratio"`
	// 喂价时间戳允许偏离回合边界的秒数
	RoundBuffer int64 `json:"round_buffer"`
	// 一个回合从开始到锁定的秒数，锁定到收盘同样长
	RoundInterval int64 `json:"round_interval"`
}

func DefaultConfig() Config {
	return Config{
		PriceSource:      "https://api.binance.com/api/v3/ticker/price?symbol=DOGEUSDT",
		RewardRate:       95,
		MinBetAmount:     1000,
		HouseBetMinRatio: 90,
		RoundBuffer:      30,
		RoundInterval:    300,
	}
}

func (c Config) validate() error {
	if c.RewardRate > 100 {
		return g_error.ErrOutOfBounds
	}
	if c.HouseBetMinRatio < 1 || c.HouseBetMinRatio > 99 {
		return g_error.ErrOutOfBounds
	}
	if c.RoundBuffer <= 0 || c.RoundInterval <= 0 || c.RoundBuffer >= c.RoundInterval {
		return g_error.ErrOutOfBounds
	}
	return nil
}
