package model

// 0为bull（看涨），1为bear（看跌）
const (
	PositionBull = 0
	PositionBear = 1
)

// 每个(user, epoch)至多一条记录，同一回合重复下注会被拒绝
type Bet struct {
	UserAddress string `json:"user_address" bson:"useraddress"`
	Epoch       uint64 `json:"epoch" bson:"epoch"`
	Position    int    `json:"position" bson:"position"`
	Amount      uint64 `json:"amount" bson:"amount"`
	// 是否已经领取过奖励/退款
	Claimed bool `json:"claimed" bson:"claimed"`
}
