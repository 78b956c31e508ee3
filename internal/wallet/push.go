package wallet

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Pusher streams treasury wallet changes to the community backend over a
// websocket. Delivery is fire and forget; a broken connection is redialed on
// the next change.
type Pusher struct {
	url string

	mu   sync.Mutex
	conn *websocket.Conn
}

type walletChange struct {
	Type        string `json:"type"`
	CommunityID string `json:"community_id"`
	Address     string `json:"address,omitempty"`
}

func NewPusher(url string) *Pusher {
	return &Pusher{url: url}
}

// WalletChanged announces that a community's cached treasury changed. An
// empty address means the treasury was removed.
func (p *Pusher) WalletChanged(communityID, address string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	msg := walletChange{Type: "treasury_wallet", CommunityID: communityID, Address: address}
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Failed to marshal wallet change: %v", err)
		return
	}

	if p.conn == nil {
		if err := p.dial(); err != nil {
			log.Warnf("Failed to dial wallet stream: %v", err)
			return
		}
	}

	p.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := p.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		log.Warnf("Failed to push wallet change, dropping connection: %v", err)
		p.conn.Close()
		p.conn = nil
	}
}

func (p *Pusher) dial() error {
	conn, _, err := websocket.DefaultDialer.Dial(p.url, nil)
	if err != nil {
		return err
	}
	p.conn = conn
	return nil
}

// Close shuts the stream down.
func (p *Pusher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}
