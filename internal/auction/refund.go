package auction

import (
	"context"
	"fmt"
	"time"

	"github.com/mmeshcher/escrow-auction/internal/model"
)

// RequestPartialRefund возвращает участнику сумму его истории вытесненных ставок.
//
// Списание и очистка истории выполняются до перевода, но откатываются целиком,
// если перевод не удался: при ErrTransferFailed учёт остаётся прежним. Снимок для
// чтения обновляется только после успешного перевода.
func (e *Engine) RequestPartialRefund(ctx context.Context, requester string, now time.Time) (int64, error) {
	if requester == "" {
		return 0, fmt.Errorf("%w: requester identity is required", ErrUnauthorized)
	}

	if err := e.lock(); err != nil {
		return 0, err
	}
	defer e.unlock(ctx)

	e.guard.Store(true)
	defer e.guard.Store(false)

	if !e.activeLocked(now) {
		return 0, ErrAuctionNotActive
	}
	if requester == e.state.leader {
		return 0, fmt.Errorf("%w: current leader cannot withdraw", ErrNotEligible)
	}

	p, ok := e.ledger.get(requester)
	if !ok || len(p.history) == 0 {
		return 0, fmt.Errorf("%w: no refundable bids", ErrNotEligible)
	}

	amount := p.refundable()
	if amount > p.total {
		return 0, fmt.Errorf("%w: refundable %d exceeds escrow %d", ErrNotEligible, amount, p.total)
	}

	prevTotal, prevHistory := p.total, p.history
	p.total -= amount
	p.history = nil

	key := e.transferKey("refund", requester, amount, p.refunds)
	if err := e.transfer(ctx, key, requester, amount); err != nil {
		p.total, p.history = prevTotal, prevHistory
		return 0, err
	}
	p.refunds++

	e.emit(model.Event{
		Type:        model.EventPartialRefundIssued,
		Participant: requester,
		Amount:      amount,
		OccurredAt:  now,
	})
	return amount, nil
}
