package msg_server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/LeaguesOfHoleHoleShoes/BullBear/log"
	"github.com/LeaguesOfHoleHoleShoes/BullBear/util"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{} // use default options

// msg type
const (
	MsgTypeHandShake = 0x0
)

const (
	sendMsgChanCache = 50
	maxPeerCount     = 1000

	handShakeWait = 8 * time.Second

	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024
)

// token换caller地址。身份认证是宿主的事，这里只要求换得出来
type callerGetter interface {
	GetCallerByToken(token string) string
}

type msgHandler interface {
	Handle(caller string, msgType int, msgID int64, msg []byte) error
}

func NewWsServer(port int, callerGetter callerGetter, msgHandler msgHandler) *WsServer {
	return &WsServer{
		port:         port,
		callerGetter: callerGetter,
		msgHandler:   msgHandler,
		peerSet:      newWsPeerSet(),
		sendMsgChan:  make(chan *cMsg, sendMsgChanCache),
	}
}

type WsServer struct {
	port int

	callerGetter callerGetter
	msgHandler   msgHandler

	peerSet *wsPeerSet

	sendMsgChan chan *cMsg
}

type cMsg struct {
	msgID   int64
	caller  string
	msgType int
	content []byte
	// 心跳帧，不带payload
	ping bool
}

func (s *WsServer) Run() error {
	go s.loop()
	mux := http.NewServeMux()
	mux.HandleFunc("/msg", s.handlePeer)
	return http.ListenAndServe(fmt.Sprintf(":%v", s.port), mux)
}

func (s *WsServer) loop() {
	for tmp := range s.sendMsgChan {
		s.send(tmp)
	}
}

func (s *WsServer) handlePeer(w http.ResponseWriter, r *http.Request) {
	log.L.Debug("receive new peer", zap.String("remote addr", r.RemoteAddr))
	if s.peerSet.count() >= maxPeerCount {
		log.L.Warn("can't receive new peer, too many peers", zap.Int64("cur count", s.peerSet.count()))
		return
	}

	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer c.Close()

	c.SetReadLimit(maxMessageSize)
	// hand shake
	caller, err := s.handleShake(c)
	if caller == "" || err != nil {
		log.L.Debug("hand shake failed", zap.Error(err))
		return
	}

	np := newWsPeer(caller, c)
	s.peerSet.addPeer(np)
	defer s.peerSet.removePeer(caller)
	if err := np.start(); err != nil {
		panic(err)
	}

	c.SetReadDeadline(time.Now().Add(pongWait))
	c.SetPongHandler(func(string) error {
		c.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		mt, message, err := c.ReadMessage()
		if err != nil {
			log.L.Debug("read msg failed", zap.Error(err))
			return
		}
		if mt != websocket.BinaryMessage {
			log.L.Debug("receive invalid msg", zap.Int("msg type", mt))
			return
		}
		msgType, mID, msgB := UnWrapMsg(message)
		if err = s.msgHandler.Handle(caller, msgType, mID, msgB); err != nil {
			log.L.Error("handle msg failed", zap.Error(err))
			return
		}
	}
}

type HandShakeReq struct {
	Token string `json:"token"`
}

func (s *WsServer) handleShake(c *websocket.Conn) (string, error) {
	c.SetReadDeadline(time.Now().Add(handShakeWait))

	var req HandShakeReq
	mt, mb, err := c.ReadMessage()
	if err != nil {
		return "", err
	}
	if mt != websocket.BinaryMessage {
		return "", fmt.Errorf("invalid msg type: %v", mt)
	}

	msgType, _, msgB := UnWrapMsg(mb)
	if msgType != MsgTypeHandShake {
		return "", fmt.Errorf("msg type isn't MsgTypeHandShake, %v", msgType)
	}
	if err = util.ParseJsonFromBytes(msgB, &req); err != nil {
		return "", err
	}
	if req.Token == "" {
		return "", errors.New("empty token")
	}

	caller := s.callerGetter.GetCallerByToken(req.Token)
	if caller == "" {
		return "", errors.New("invalid token")
	}
	log.L.Debug("hand shake success", zap.String("caller", caller))
	return caller, nil
}

func (s *WsServer) Send(caller string, msgType int, msgID int64, msg []byte) {
	s.sendMsgChan <- &cMsg{msgID: msgID, caller: caller, msgType: msgType, content: msg}
}

func (s *WsServer) send(msg *cMsg) {
	p := s.peerSet.getPeer(msg.caller)
	if p == nil {
		log.L.Warn("can't find peer in peer set, msg not send", zap.String("caller", msg.caller))
		return
	}
	// send失败会让peer直接stop并close conn，上边的ReadMessage随即出err，
	// 此次连接的生命周期到此结束
	p.send(msg)
}
