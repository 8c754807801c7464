package g_error

// 错误分类。链上合约只会返回revert reason字符串，这里在保留原始reason的
// 同时给每个错误挂一个类别，方便调用方按类别做重试或提示
const (
	KindUnknown = iota
	// 调用方角色不对
	KindAuthorization
	// 当前回合状态下不允许该操作
	KindState
	// 参数越界
	KindBounds
	// 无可领取的奖励/退款
	KindEligibility
	// 重复操作
	KindDuplicate
)

func New(kind int, msg string) *GError {
	return &GError{kind: kind, msg: msg}
}

type GError struct {
	kind int
	msg  string
}

func (e *GError) Error() string { return e.msg }

func (e *GError) Kind() int { return e.kind }

// 对非GError返回KindUnknown
func KindOf(err error) int {
	if ge, ok := err.(*GError); ok {
		return ge.kind
	}
	return KindUnknown
}

var (
	// access control
	ErrNotOwner    = New(KindAuthorization, "caller is not the owner")
	ErrNotOperator = New(KindAuthorization, "caller is not the operator")
	ErrPaused      = New(KindState, "contract is paused")

	// treasury
	ErrAlreadyBlacklisted = New(KindDuplicate, "already blacklisted")
	ErrInsufficientFunds  = New(KindBounds, "insufficient contract balance")

	// bounded parameters
	ErrOutOfBounds       = New(KindBounds, "out-of-bounds")
	ErrReferralsAddrSet  = New(KindDuplicate, "this address is already set")
	ErrReferralsNotBound = New(KindState, "referrals contract not set")

	// round lifecycle
	ErrAlreadyStarted   = New(KindState, "round already started")
	ErrGenesisDone      = New(KindState, "genesis round already started")
	ErrNoStartableRound = New(KindState, "no startable round")
	ErrLockTooEarlyLate = New(KindState, "Lock is too early/late")
	ErrExecTooEarlyLate = New(KindState, "Execute is too early/late")
	ErrRoundNotExist    = New(KindState, "round does not exist")
	ErrAlreadyCanceled  = New(KindDuplicate, "round already canceled")
	ErrHouseBetLimits   = New(KindBounds, "house bets outside of limits")

	// wagers and claims
	ErrBlacklisted      = New(KindAuthorization, "Blacklisted")
	ErrRoundNotBettable = New(KindDuplicate, "Round not bettable")
	ErrBetTooEarlyLate  = New(KindState, "Bet is too early/late")
	ErrBetTooSmall      = New(KindBounds, "Bet amount must be greater than minBetAmount")
	ErrNotEligible      = New(KindEligibility, "Not eligible for claim")
	ErrRoundNotEnded    = New(KindState, "Round has not ended")

	// referrals
	ErrReferSelf     = New(KindState, "can not refer self")
	ErrOnlyContracts = New(KindAuthorization, "only contracts")
)
