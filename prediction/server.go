package prediction

import (
	"github.com/LeaguesOfHoleHoleShoes/BullBear/log"
	"github.com/LeaguesOfHoleHoleShoes/BullBear/msg_server"
	g_error "github.com/LeaguesOfHoleHoleShoes/BullBear/prediction/common/g-error"
	"github.com/LeaguesOfHoleHoleShoes/BullBear/prediction/model"
	"github.com/LeaguesOfHoleHoleShoes/BullBear/util"
	"go.uber.org/zap"
)

// msg types。0x0是握手，归msg_server管
const (
	MsgTypeError = 0x1

	MsgTypeBet          = 0x10
	MsgTypeClaim        = 0x11
	MsgTypeClaimRefFund = 0x12

	MsgTypeRound       = 0x20
	MsgTypeUserHistory = 0x21
	MsgTypeRefRewards  = 0x22
)

type BetReq struct {
	Epoch    uint64 `json:"epoch"`
	Position int    `json:"position"`
	Amount   uint64 `json:"amount"`
	// 可选，第一次带推荐人下注时建立推荐边
	Referrer string `json:"referrer,omitempty"`
}

type ClaimReq struct {
	Epochs []uint64 `json:"epochs"`
}

type ClaimResp struct {
	Paid uint64 `json:"paid"`
}

type RoundReq struct {
	Epoch uint64 `json:"epoch"`
}

type RoundResp struct {
	CurrentEpoch uint64      `json:"current_epoch"`
	Round        model.Round `json:"round"`
}

type UserHistoryReq struct {
	Offset int `json:"offset"`
	Count  int `json:"count"`
}

type UserHistoryResp struct {
	Total int         `json:"total"`
	Bets  []model.Bet `json:"bets"`
}

type RefRewardsResp struct {
	Available uint64 `json:"available"`
}

type ErrResp struct {
	Err string `json:"err"`
}

// 对外的指令面。把ws消息翻译成engine上的操作，caller身份来自握手，
// 生命周期类操作不走这里，operator用自己的工具直接调engine
func NewOpsServer(port int, engine *Engine, callerGetter CallerGetter) *OpsServer {
	s := &OpsServer{engine: engine}
	s.wsServer = msg_server.NewWsServer(port, callerGetter, s)
	return s
}

// token换caller地址
type CallerGetter interface {
	GetCallerByToken(token string) string
}

type OpsServer struct {
	engine   *Engine
	wsServer *msg_server.WsServer
}

func (s *OpsServer) Run() error {
	return s.wsServer.Run()
}

func (s *OpsServer) Handle(caller string, msgType int, mID int64, msg []byte) error {
	switch msgType {
	case MsgTypeBet:
		var req BetReq
		if err := util.ParseJsonFromBytes(msg, &req); err != nil {
			return err
		}
		s.doBet(caller, mID, req)
	case MsgTypeClaim:
		var req ClaimReq
		if err := util.ParseJsonFromBytes(msg, &req); err != nil {
			return err
		}
		s.doClaim(caller, mID, req)
	case MsgTypeClaimRefFund:
		s.doClaimRefFund(caller, mID)
	case MsgTypeRound:
		var req RoundReq
		if err := util.ParseJsonFromBytes(msg, &req); err != nil {
			return err
		}
		s.doRound(caller, mID, req)
	case MsgTypeUserHistory:
		var req UserHistoryReq
		if err := util.ParseJsonFromBytes(msg, &req); err != nil {
			return err
		}
		s.doUserHistory(caller, mID, req)
	case MsgTypeRefRewards:
		s.sendMsg(caller, MsgTypeRefRewards, mID,
			RefRewardsResp{Available: s.engine.ReferralRewardsAvailable(caller)})
	default:
		log.L.Debug("unknown msg type", zap.Int("msg type", msgType), zap.String("caller", caller))
	}
	return nil
}

func (s *OpsServer) doBet(caller string, mID int64, req BetReq) {
	var err error
	switch {
	case req.Position == model.PositionBull && req.Referrer != "":
		err = s.engine.BetBullWithReferrer(caller, req.Epoch, req.Amount, req.Referrer)
	case req.Position == model.PositionBull:
		err = s.engine.BetBull(caller, req.Epoch, req.Amount)
	case req.Referrer != "":
		err = s.engine.BetBearWithReferrer(caller, req.Epoch, req.Amount, req.Referrer)
	default:
		err = s.engine.BetBear(caller, req.Epoch, req.Amount)
	}
	if err != nil {
		s.sendErr(caller, mID, err)
		return
	}
	s.sendMsg(caller, MsgTypeBet, mID, BetReq{Epoch: req.Epoch, Position: req.Position, Amount: req.Amount})
}

func (s *OpsServer) doClaim(caller string, mID int64, req ClaimReq) {
	paid, err := s.engine.Claim(caller, req.Epochs)
	if err != nil {
		s.sendErr(caller, mID, err)
		return
	}
	s.sendMsg(caller, MsgTypeClaim, mID, ClaimResp{Paid: paid})
}

func (s *OpsServer) doClaimRefFund(caller string, mID int64) {
	paid, err := s.engine.ReferralFundsClaim(caller)
	if err != nil {
		s.sendErr(caller, mID, err)
		return
	}
	s.sendMsg(caller, MsgTypeClaimRefFund, mID, ClaimResp{Paid: paid})
}

func (s *OpsServer) doRound(caller string, mID int64, req RoundReq) {
	epoch := req.Epoch
	if epoch == 0 {
		epoch = s.engine.CurrentEpoch()
	}
	r, ok := s.engine.GetRound(epoch)
	if !ok {
		s.sendErr(caller, mID, g_error.ErrRoundNotExist)
		return
	}
	s.sendMsg(caller, MsgTypeRound, mID, RoundResp{CurrentEpoch: s.engine.CurrentEpoch(), Round: r})
}

func (s *OpsServer) doUserHistory(caller string, mID int64, req UserHistoryReq) {
	s.sendMsg(caller, MsgTypeUserHistory, mID, UserHistoryResp{
		Total: s.engine.GetUserRoundsLength(caller),
		Bets:  s.engine.GetUserRounds(caller, req.Offset, req.Count),
	})
}

func (s *OpsServer) sendMsg(caller string, msgType int, mID int64, msg interface{}) {
	s.wsServer.Send(caller, msgType, mID, util.StringifyJsonToBytes(msg))
}

func (s *OpsServer) sendErr(caller string, mID int64, err error) {
	s.wsServer.Send(caller, MsgTypeError, mID, util.StringifyJsonToBytes(ErrResp{Err: err.Error()}))
}
