package mq

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgo/lootbound/api/internal/model"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	mu   sync.Mutex
	sent []published
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error { return nil }

type recordingSink struct {
	mu     sync.Mutex
	events []*model.DomainEvent
}

func (s *recordingSink) Publish(_ context.Context, e *model.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestPublisher_Publish_RoutesByEventType(t *testing.T) {
	ch := &fakeChannel{}
	p := &Publisher{ch: ch, exchange: "lootbound.events"}

	event := &model.DomainEvent{
		ID:        "evt-1",
		Type:      model.EventPartyMemberJoined,
		PartyID:   "party:1",
		PlayerID:  "player:2",
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, p.Publish(context.Background(), event))

	require.Len(t, ch.sent, 1)
	got := ch.sent[0]
	assert.Equal(t, "lootbound.events", got.exchange)
	assert.Equal(t, "party.member_joined", got.key)
	assert.Equal(t, "evt-1", got.msg.MessageId)
	assert.Equal(t, "application/json", got.msg.ContentType)

	var decoded model.DomainEvent
	require.NoError(t, json.Unmarshal(got.msg.Body, &decoded))
	assert.Equal(t, event.PartyID, decoded.PartyID)
	assert.Equal(t, event.Type, decoded.Type)
}

func TestPublisher_PublishJSON(t *testing.T) {
	ch := &fakeChannel{}
	p := &Publisher{ch: ch, exchange: "x"}

	require.NoError(t, p.PublishJSON(context.Background(), "k", map[string]int{"a": 1}))
	assert.JSONEq(t, `{"a":1}`, string(ch.sent[0].msg.Body))
}

func TestRelay_DeliversDecodedEvents(t *testing.T) {
	sink := &recordingSink{}
	relay := NewRelay(sink, nil)

	body, err := json.Marshal(&model.DomainEvent{ID: "e1", Type: model.EventLootMinted, PlayerID: "player:1"})
	require.NoError(t, err)

	msgs := make(chan amqp.Delivery, 3)
	msgs <- amqp.Delivery{RoutingKey: "loot.minted", Body: body}
	msgs <- amqp.Delivery{RoutingKey: "junk", Body: []byte("not json")}
	msgs <- amqp.Delivery{RoutingKey: "empty", Body: []byte(`{}`)}
	close(msgs)

	relay.Run(context.Background(), msgs)

	require.Equal(t, 1, sink.len())
	assert.Equal(t, "e1", sink.events[0].ID)
	assert.Equal(t, "player:1", sink.events[0].PlayerID)
}

func TestRelay_StopsOnContextCancel(t *testing.T) {
	relay := NewRelay(&recordingSink{}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		relay.Run(ctx, make(chan amqp.Delivery))
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop after cancel")
	}
}
