package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/mmeshcher/escrow-auction/internal/model"
)

const (
	streamName    = "AUCTION_EVENTS"
	subjectPrefix = "auction.events."
)

type publisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSSink публикует события в JetStream в subject auction.events.{type}.
// Идентификатор события передаётся как Msg-Id, поэтому повторная доставка дедуплицируется.
type NATSSink struct {
	js publisher
}

// NewNATSSink создаёт приёмник поверх JetStream.
func NewNATSSink(js jetstream.JetStream) *NATSSink {
	return &NATSSink{js: js}
}

// Name возвращает имя приёмника.
func (s *NATSSink) Name() string { return "nats" }

// Deliver публикует события по одному в порядке следования.
func (s *NATSSink) Deliver(ctx context.Context, events []model.Event) error {
	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}

		subject := subjectPrefix + string(ev.Type)
		if _, err := s.js.Publish(ctx, subject, data, jetstream.WithMsgID(ev.ID)); err != nil {
			return fmt.Errorf("publish %s seq=%d: %w", subject, ev.Sequence, err)
		}
	}
	return nil
}

// EnsureStream создаёт или обновляет поток событий аукциона.
func EnsureStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       streamName,
		Subjects:   []string{subjectPrefix + ">"},
		Storage:    jetstream.FileStorage,
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     30 * 24 * time.Hour,
		Duplicates: 10 * time.Minute,
		Replicas:   1,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", streamName, err)
	}
	return nil
}
