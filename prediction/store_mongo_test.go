package prediction

import (
	"testing"

	"github.com/LeaguesOfHoleHoleShoes/BullBear/prediction/model"
	"github.com/stretchr/testify/assert"
	"gopkg.in/check.v1"
)

const (
	testDBName = "bullbear_db_test"
)

var _ = check.Suite(&MarketDBByMongoSuite{})

func Test(t *testing.T) { check.TestingT(t) }

type MarketDBByMongoSuite struct {
	mDB *MarketDBByMongo
}

// 每一个test case 的开始初始化
func (s *MarketDBByMongoSuite) SetUpTest(c *check.C) {
	s.mDB = NewMarketDBByMongo([]string{"localhost"}, testDBName)
}

// 每一个test case 的结束时做的事
func (s *MarketDBByMongoSuite) TearDownTest(c *check.C) {
	s.mDB.ClearTestData()
}

func (s *MarketDBByMongoSuite) TestMarketDBByMongo_SaveRound(t *check.C) {
	err := s.mDB.SaveRound(model.Round{Epoch: 1, LockPrice: 1500, BullAmount: 1000, BearAmount: 500})
	assert.NoError(t, err)

	// 同一epoch再保存是覆盖而不是追加
	err = s.mDB.SaveRound(model.Round{Epoch: 1, LockPrice: 1500, ClosePrice: 1700, Closed: true,
		BullAmount: 1000, BearAmount: 500, RewardBaseCalAmount: 1000, RewardAmount: 1395})
	assert.NoError(t, err)

	r := s.mDB.GetRound(1)
	assert.True(t, r.Closed)
	assert.Equal(t, int64(1700), r.ClosePrice)
	assert.Equal(t, uint64(1395), r.RewardAmount)

	n, err := s.mDB.getDB().C(s.mDB.roundTN).Count()
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}

func (s *MarketDBByMongoSuite) TestMarketDBByMongo_SaveBet(t *check.C) {
	err := s.mDB.SaveBet(model.Bet{UserAddress: "0x123", Epoch: 1, Position: model.PositionBull, Amount: 200})
	assert.NoError(t, err)
	err = s.mDB.SaveBet(model.Bet{UserAddress: "0x124", Epoch: 1, Position: model.PositionBear, Amount: 500})
	assert.NoError(t, err)
	err = s.mDB.SaveBet(model.Bet{UserAddress: "0x123", Epoch: 2, Position: model.PositionBull, Amount: 300})
	assert.NoError(t, err)

	// (useraddress, epoch)唯一
	err = s.mDB.SaveBet(model.Bet{UserAddress: "0x123", Epoch: 1, Position: model.PositionBear, Amount: 999})
	assert.Error(t, err)

	bets := s.mDB.GetBetsByEpoch(1)
	assert.Len(t, bets, 2)
	bets = s.mDB.GetBetsByEpoch(2)
	assert.Len(t, bets, 1)
	assert.Equal(t, uint64(300), bets[0].Amount)
}

func (s *MarketDBByMongoSuite) TestMarketDBByMongo_SavePayout(t *check.C) {
	err := s.mDB.SavePayout(model.Payout{UserAddress: "0x123", Epoch: 1, Amount: 279})
	assert.NoError(t, err)
	err = s.mDB.SavePayout(model.Payout{UserAddress: "0x124", Epoch: 1, Amount: 100, Refund: true})
	assert.NoError(t, err)
	err = s.mDB.SavePayout(model.Payout{UserAddress: "0x123", Epoch: 2, Amount: 50})
	assert.NoError(t, err)

	ps := s.mDB.GetPayouts(1, "")
	assert.Len(t, ps, 2)
	ps = s.mDB.GetPayouts(1, "0x124")
	assert.Len(t, ps, 1)
	assert.True(t, ps[0].Refund)
	ps = s.mDB.GetPayouts(3, "")
	assert.Len(t, ps, 0)
}
