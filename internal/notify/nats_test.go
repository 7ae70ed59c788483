package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/escrow-auction/internal/model"
)

type published struct {
	subject string
	payload []byte
}

type stubPublisher struct {
	msgs []published
	err  error
}

func (p *stubPublisher) Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.msgs = append(p.msgs, published{subject: subject, payload: payload})
	return &jetstream.PubAck{Stream: streamName, Sequence: uint64(len(p.msgs))}, nil
}

func TestNATSSink_PublishesPerEventType(t *testing.T) {
	pub := &stubPublisher{}
	sink := &NATSSink{js: pub}

	events := []model.Event{
		{ID: "1", Sequence: 1, Type: model.EventAuctionEnded, Participant: "b", Amount: 106},
		{ID: "2", Sequence: 2, Type: model.EventRefundIssued, Participant: "a", Amount: 100},
	}
	require.NoError(t, sink.Deliver(context.Background(), events))

	require.Len(t, pub.msgs, 2)
	assert.Equal(t, "auction.events.auction_ended", pub.msgs[0].subject)
	assert.Equal(t, "auction.events.refund_issued", pub.msgs[1].subject)

	var decoded model.Event
	require.NoError(t, json.Unmarshal(pub.msgs[1].payload, &decoded))
	assert.Equal(t, "a", decoded.Participant)
	assert.Equal(t, int64(100), decoded.Amount)
}

func TestNATSSink_PublishError(t *testing.T) {
	errDown := errors.New("no responders")
	sink := &NATSSink{js: &stubPublisher{err: errDown}}

	err := sink.Deliver(context.Background(), []model.Event{{ID: "1", Type: model.EventBidAccepted}})
	assert.ErrorIs(t, err, errDown)
	assert.Equal(t, "nats", sink.Name())
}
