package model

// 一次成功的claim产生的转账记录，只用于审计落库
type Payout struct {
	UserAddress string `json:"user_address" bson:"useraddress"`
	Epoch       uint64 `json:"epoch" bson:"epoch"`
	Amount      uint64 `json:"amount" bson:"amount"`
	// 退款还是派奖
	Refund bool `json:"refund" bson:"refund"`
}
