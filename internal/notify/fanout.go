// Package notify доставляет события аукциона подписчикам: в журнал, в NATS и в WebSocket.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/mmeshcher/escrow-auction/internal/model"
)

// Sink принимает пачку событий одной операции.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, events []model.Event) error
}

type sinkFunc struct {
	name string
	fn   func(ctx context.Context, events []model.Event) error
}

func (s sinkFunc) Name() string { return s.name }

func (s sinkFunc) Deliver(ctx context.Context, events []model.Event) error {
	return s.fn(ctx, events)
}

// SinkFunc оборачивает функцию в Sink с указанным именем.
func SinkFunc(name string, fn func(ctx context.Context, events []model.Event) error) Sink {
	return sinkFunc{name: name, fn: fn}
}

// Fanout передаёт события всем приёмникам в порядке поступления.
// Notify только ставит пачку в очередь, доставку выполняет Run.
type Fanout struct {
	queue  chan []model.Event
	done   chan struct{}
	sinks  []Sink
	logger *zap.Logger

	// OnSinkError вызывается при каждой ошибке доставки.
	OnSinkError func(sink string, err error)
}

// NewFanout создаёт рассылку с очередью на buffer пачек.
func NewFanout(logger *zap.Logger, buffer int, sinks ...Sink) *Fanout {
	return &Fanout{
		queue:  make(chan []model.Event, buffer),
		done:   make(chan struct{}),
		sinks:  sinks,
		logger: logger,
	}
}

// Notify ставит события в очередь. Блокируется, если очередь заполнена.
func (f *Fanout) Notify(ctx context.Context, events []model.Event) {
	batch := make([]model.Event, len(events))
	copy(batch, events)

	select {
	case f.queue <- batch:
	case <-f.done:
		f.logger.Error("notification fanout stopped, events not delivered",
			zap.Int("events", len(batch)), zap.Int64("first_sequence", batch[0].Sequence))
	}
}

// Run доставляет события до отмены контекста, затем досылает оставшиеся в очереди.
func (f *Fanout) Run(ctx context.Context) error {
	defer close(f.done)

	for {
		select {
		case batch := <-f.queue:
			f.deliver(ctx, batch)
		case <-ctx.Done():
			f.drain()
			return nil
		}
	}
}

func (f *Fanout) drain() {
	ctx := context.Background()
	for {
		select {
		case batch := <-f.queue:
			f.deliver(ctx, batch)
		default:
			return
		}
	}
}

func (f *Fanout) deliver(ctx context.Context, batch []model.Event) {
	for _, s := range f.sinks {
		if err := s.Deliver(ctx, batch); err != nil {
			f.logger.Error("notification delivery failed",
				zap.String("sink", s.Name()),
				zap.Int64("first_sequence", batch[0].Sequence),
				zap.Error(err))
			if f.OnSinkError != nil {
				f.OnSinkError(s.Name(), err)
			}
		}
	}
}
