package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/whiskylabs/whisky-protocol-core-sub001/internal/logger"
)

// Publisher is the subset of *nats.Conn the bridge needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Envelope is the wire form of a bridged event.
type Envelope struct {
	Type      EventType `json:"type"`
	TxID      string    `json:"tx_id,omitempty"`
	Height    int64     `json:"height"`
	Data      any       `json:"data"`
	Timestamp int64     `json:"timestamp"`
}

// NATSBridge republishes every emitted event on "<prefix>.<type>" so
// off-chain indexers can follow the ledger.
type NATSBridge struct {
	pub           Publisher
	subjectPrefix string
	now           func() time.Time
}

// NewNATSBridge subscribes a bridge publishing through pub to emitter.
func NewNATSBridge(emitter *Emitter, pub Publisher, subjectPrefix string) *NATSBridge {
	b := &NATSBridge{pub: pub, subjectPrefix: subjectPrefix, now: time.Now}
	emitter.SubscribeAll(b.forward)
	return b
}

// Subject returns the subject events of typ are published on.
func (b *NATSBridge) Subject(typ EventType) string {
	return b.subjectPrefix + "." + string(typ)
}

func (b *NATSBridge) forward(ev Event) {
	data, err := json.Marshal(Envelope{
		Type:      ev.Type,
		TxID:      ev.TxID,
		Height:    ev.Height,
		Data:      ev.Data,
		Timestamp: b.now().UnixMilli(),
	})
	if err != nil {
		logger.Error("encode event for nats", "type", ev.Type, "error", err)
		return
	}
	if err := b.pub.Publish(b.Subject(ev.Type), data); err != nil {
		logger.Warn("publish event to nats", "type", ev.Type, "error", err)
	}
}

// ConnectNATS dials url with reconnect handling.
func ConnectNATS(url string) (*nats.Conn, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url,
		nats.Name("whiskyd"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("disconnected from nats", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("reconnected to nats", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			logger.Info("nats connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return nc, nil
}
