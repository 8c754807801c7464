package prediction

import (
	"github.com/LeaguesOfHoleHoleShoes/BullBear/prediction/model"
)

// 审计落库。引擎的真实状态在内存里由宿主账本保证，这里只是把
// 结算结果与流水异步可查地存一份，失败不影响链上语义
type Database interface {
	SaveRound(r model.Round) error
	SaveBet(b model.Bet) error
	SavePayout(p model.Payout) error
}

type noopDB struct{}

func (noopDB) SaveRound(model.Round) error   { return nil }
func (noopDB) SaveBet(model.Bet) error       { return nil }
func (noopDB) SavePayout(model.Payout) error { return nil }
