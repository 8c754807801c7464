package model

// 回合表是append-only的，epoch从1开始单调递增，永不复用。
// 同一时间只有最高的epoch且closed、canceled都为false的回合可以下注
type Round struct {
	Epoch uint64 `json:"epoch" bson:"epoch"`

	StartTimestamp int64 `json:"start_timestamp" bson:"starttimestamp"`
	LockTimestamp  int64 `json:"lock_timestamp" bson:"locktimestamp"`
	CloseTimestamp int64 `json:"close_timestamp" bson:"closetimestamp"`

	// 锁定/收盘价格以及喂价的时间戳，未设置时为0
	LockPrice           int64 `json:"lock_price" bson:"lockprice"`
	LockPriceTimestamp  int64 `json:"lock_price_timestamp" bson:"lockpricetimestamp"`
	ClosePrice          int64 `json:"close_price" bson:"closeprice"`
	ClosePriceTimestamp int64 `json:"close_price_timestamp" bson:"closepricetimestamp"`

	// 两边的总押注（用户+庄家）
	BullAmount uint64 `json:"bull_amount" bson:"bullamount"`
	BearAmount uint64 `json:"bear_amount" bson:"bearamount"`

	// 获胜方的总押注，作为派奖的分母。收盘前为0
	RewardBaseCalAmount uint64 `json:"reward_base_cal_amount" bson:"rewardbasecalamount"`
	// 可分给获胜方的总额。收盘前为0
	RewardAmount uint64 `json:"reward_amount" bson:"rewardamount"`

	// closed与canceled互斥
	Closed   bool `json:"closed" bson:"closed"`
	Canceled bool `json:"canceled" bson:"canceled"`
	// 取消时记录哪边可以退款
	RefundBull bool `json:"refund_bull" bson:"refundbull"`
	RefundBear bool `json:"refund_bear" bson:"refundbear"`
}

// 还未锁定价格的回合才可以下注
func (r *Round) Open() bool {
	return !r.Closed && !r.Canceled && r.LockPrice == 0
}

func (r *Round) Locked() bool {
	return !r.Closed && !r.Canceled && r.LockPrice != 0
}

// 已有明确结果（派奖或退款）
func (r *Round) Resolved() bool {
	return r.Closed || r.Canceled
}

// 1为bull胜，-1为bear胜，0为平（push）
func (r *Round) Winner() int {
	if r.ClosePrice > r.LockPrice {
		return 1
	}
	if r.ClosePrice < r.LockPrice {
		return -1
	}
	return 0
}
