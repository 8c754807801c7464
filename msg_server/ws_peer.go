package msg_server

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LeaguesOfHoleHoleShoes/BullBear/log"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func newWsPeerSet() *wsPeerSet {
	return &wsPeerSet{}
}

type wsPeerSet struct {
	// key caller address
	peers     sync.Map
	peerCount int64
}

func (ps *wsPeerSet) count() int64 {
	return atomic.LoadInt64(&ps.peerCount)
}

func (ps *wsPeerSet) getPeer(caller string) *wsPeer {
	if p, ok := ps.peers.Load(caller); ok {
		return p.(*wsPeer)
	}
	return nil
}

func (ps *wsPeerSet) removePeer(caller string) {
	if p := ps.getPeer(caller); p != nil {
		log.L.Debug("remove peer", zap.String("caller", caller))
		p.stop()
		ps.peers.Delete(caller)
		atomic.AddInt64(&ps.peerCount, -1)
	}
}

func (ps *wsPeerSet) addPeer(p *wsPeer) {
	if preP := ps.getPeer(p.caller); preP != nil {
		// 同一个地址重连时踢掉旧连接，close后会触发remove做一次count-1
		preP.stop()
		time.Sleep(10 * time.Millisecond)
	}
	atomic.AddInt64(&ps.peerCount, 1)

	ps.peers.Store(p.caller, p)
}

func newWsPeer(caller string, conn *websocket.Conn) *wsPeer {
	return &wsPeer{
		caller: caller, conn: conn,
		sendChan: make(chan *cMsg, sendMsgChanCache),
	}
}

type wsPeer struct {
	caller   string
	conn     *websocket.Conn
	sendChan chan *cMsg
	stopChan chan struct{}
}

func (p *wsPeer) start() error {
	if p.stopChan != nil {
		return errors.New("peer already started")
	}
	p.stopChan = make(chan struct{})
	go p.loop()

	return nil
}

// close stop chan 后会调用conn.close
func (p *wsPeer) stop() error {
	if p.stopChan == nil {
		return errors.New("peer not started")
	}
	close(p.stopChan)
	p.stopChan = nil

	return nil
}

func (p *wsPeer) loop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.conn.Close()
	}()
	for {
		select {
		case msg := <-p.sendChan:
			if err := p.doSend(msg); err != nil {
				return
			}

		case <-ticker.C:
			if err := p.doSend(&cMsg{ping: true}); err != nil {
				return
			}

		case <-p.stopChan:
			log.L.Debug("peer loop returned", zap.String("caller", p.caller))
			return
		}
	}
}

func (p *wsPeer) send(msg *cMsg) {
	select {
	case p.sendChan <- msg:
	default:
		log.L.Warn("can't send msg to client", zap.String("caller", p.caller), zap.Int("send chan len", len(p.sendChan)))
	}
}

func (p *wsPeer) doSend(msg *cMsg) error {
	p.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if msg.ping {
		return p.conn.WriteMessage(websocket.PingMessage, nil)
	}
	return p.conn.WriteMessage(websocket.BinaryMessage, WrapMsg(msg.msgType, msg.msgID, msg.content))
}
