// Package auction реализует движок аукциона с эскроу: учёт ставок, частичные
// возвраты и однократный расчёт между продавцом, владельцем и проигравшими.
//
// Все изменяющие операции выполняются под одной блокировкой, которая удерживается
// и на время внешних переводов. Пока выполняется возврат или расчёт, флаг
// повторного входа отклоняет любые другие изменяющие вызовы с ErrReentrantCall.
// Запросы на чтение не берут блокировку и читают последний опубликованный снимок.
package auction

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/escrow-auction/internal/model"
)

// Transferer переводит средства получателю через внешнюю систему.
// key одинаков для всех попыток одного и того же перевода, внешняя система
// должна применять перевод с данным ключом не более одного раза.
// Реализация может повторно вызывать методы Engine во время перевода.
type Transferer interface {
	Transfer(ctx context.Context, key, recipient string, amount int64) error
}

// Notifier получает события успешно выполненной операции в порядке их возникновения.
// Вызывается под блокировкой движка и не должен синхронно вызывать изменяющие методы.
type Notifier interface {
	Notify(ctx context.Context, events []model.Event)
}

// Trigger описывает источник завершения аукциона.
type Trigger int

const (
	// TriggerManual означает завершение владельцем.
	TriggerManual Trigger = iota + 1
	// TriggerTimeout означает завершение по истечении срока.
	TriggerTimeout
)

func (t Trigger) String() string {
	switch t {
	case TriggerManual:
		return "manual"
	case TriggerTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("trigger(%d)", int(t))
	}
}

type state struct {
	endTime time.Time
	leader  string
	highest int64
	ended   bool
	settled bool
}

// payout фиксирует суммы расчёта при первой попытке и уже выполненные выплаты,
// чтобы повторный расчёт не платил дважды.
type payout struct {
	leader         string
	total          int64
	commission     int64
	sellerAmount   int64
	sellerPaid     bool
	commissionPaid bool
}

type snapshot struct {
	state     state
	bidders   []model.Bidder
	histories map[string][]int64
}

// Engine управляет одним аукционом.
type Engine struct {
	cfg       Config
	id        uuid.UUID
	transfers Transferer
	notifier  Notifier

	mu      sync.Mutex
	guard   atomic.Bool
	ledger  *ledger
	state   state
	payout  *payout
	seq     int64
	pending []model.Event

	snap atomic.Pointer[snapshot]
}

// New создаёт движок аукциона. notifier может быть nil.
func New(cfg Config, transfers Transferer, notifier Notifier) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if transfers == nil {
		return nil, fmt.Errorf("%w: transfer service is required", ErrInvalidConfig)
	}

	e := &Engine{
		cfg:       cfg,
		id:        auctionID(cfg),
		transfers: transfers,
		notifier:  notifier,
		ledger:    newLedger(),
		state:     state{endTime: cfg.EndTime},
	}
	e.publish()
	return e, nil
}

// Config возвращает параметры аукциона.
func (e *Engine) Config() Config {
	return e.cfg
}

func (e *Engine) lock() error {
	if e.guard.Load() {
		return ErrReentrantCall
	}
	e.mu.Lock()
	return nil
}

func (e *Engine) unlock(ctx context.Context) {
	e.publish()
	if len(e.pending) > 0 {
		events := e.pending
		e.pending = nil
		if e.notifier != nil {
			e.notifier.Notify(ctx, events)
		}
	}
	e.mu.Unlock()
}

func (e *Engine) emit(ev model.Event) {
	e.seq++
	ev.ID = uuid.NewString()
	ev.Sequence = e.seq
	e.pending = append(e.pending, ev)
}

func (e *Engine) publish() {
	e.snap.Store(&snapshot{
		state:     e.state,
		bidders:   e.ledger.bidders(),
		histories: e.ledger.histories(),
	})
}

// ID возвращает идентификатор аукциона, от которого производятся ключи переводов.
func (e *Engine) ID() uuid.UUID {
	return e.id
}

func auctionID(cfg Config) uuid.UUID {
	name := fmt.Sprintf("%s|%s|%s|%s|%s", cfg.Owner, cfg.Seller, cfg.Item,
		cfg.StartTime.UTC().Format(time.RFC3339Nano), cfg.EndTime.UTC().Format(time.RFC3339Nano))
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name))
}

// transferKey выводит ключ идемпотентности из аукциона и описания перевода,
// поэтому повтор того же перевода после ошибки отправляется с тем же ключом.
func (e *Engine) transferKey(leg string, recipient string, amount int64, n int) string {
	name := fmt.Sprintf("%s|%s|%d|%d", leg, recipient, amount, n)
	return uuid.NewSHA1(e.id, []byte(name)).String()
}

func (e *Engine) transfer(ctx context.Context, key, recipient string, amount int64) error {
	if err := e.transfers.Transfer(ctx, key, recipient, amount); err != nil {
		return fmt.Errorf("%w: %d to %s: %w", ErrTransferFailed, amount, recipient, err)
	}
	return nil
}

func (e *Engine) activeLocked(now time.Time) bool {
	return !e.state.ended && !now.Before(e.cfg.StartTime) && now.Before(e.state.endTime)
}
