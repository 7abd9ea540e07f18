package events

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitterDeliversInOrder(t *testing.T) {
	e := NewEmitter()
	var got []string
	e.Subscribe(EventPoolChange, func(ev Event) { got = append(got, "typed:"+ev.TxID) })
	e.SubscribeAll(func(ev Event) { got = append(got, "all:"+ev.TxID) })

	e.Emit(Event{Type: EventPoolChange, TxID: "1"})
	e.Emit(Event{Type: EventGameSettled, TxID: "2"})
	assert.Equal(t, []string{"typed:1", "all:1", "all:2"}, got)
}

// TestEmitterRecoversPanics ensures one bad subscriber does not starve the
// rest.
func TestEmitterRecoversPanics(t *testing.T) {
	e := NewEmitter()
	called := false
	e.Subscribe(EventTxExecuted, func(Event) { panic("boom") })
	e.Subscribe(EventTxExecuted, func(Event) { called = true })
	require.NotPanics(t, func() { e.Emit(Event{Type: EventTxExecuted}) })
	assert.True(t, called)
}

type fakePublisher struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return f.err
}

func TestNATSBridge(t *testing.T) {
	e := NewEmitter()
	pub := &fakePublisher{}
	b := NewNATSBridge(e, pub, "whisky")
	b.now = func() time.Time { return time.UnixMilli(42) }

	e.Emit(Event{Type: EventPoolChange, TxID: "abc", Height: 3, Data: PoolChange{Action: PoolDeposit, Amount: 10, PostLiquidity: 10, LpSupply: 10}})
	require.Len(t, pub.subjects, 1)
	assert.Equal(t, "whisky.pool_change", pub.subjects[0])

	var env struct {
		Type      EventType  `json:"type"`
		Height    int64      `json:"height"`
		Timestamp int64      `json:"timestamp"`
		Data      PoolChange `json:"data"`
	}
	require.NoError(t, json.Unmarshal(pub.payloads[0], &env))
	assert.Equal(t, EventPoolChange, env.Type)
	assert.Equal(t, int64(3), env.Height)
	assert.Equal(t, int64(42), env.Timestamp)
	assert.Equal(t, uint64(10), env.Data.LpSupply)

	pub.err = errors.New("down")
	assert.NotPanics(t, func() { e.Emit(Event{Type: EventTxExecuted}) })
}
