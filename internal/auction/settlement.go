package auction

import (
	"context"
	"fmt"
	"time"

	"github.com/mmeshcher/escrow-auction/internal/model"
)

// End завершает аукцион и сразу запускает расчёт.
//
// Ручное завершение доступно только владельцу и только после начала торгов.
// Завершение по таймауту доступно любому вызывающему, когда now >= срока окончания.
// Флаг завершения остаётся установленным, даже если расчёт вернул ошибку:
// в этом случае расчёт повторяется через ProcessPayments.
func (e *Engine) End(ctx context.Context, caller string, now time.Time, trigger Trigger) error {
	if err := e.lock(); err != nil {
		return err
	}
	defer e.unlock(ctx)

	switch trigger {
	case TriggerManual:
		if caller != e.cfg.Owner {
			return fmt.Errorf("%w: only the owner can end the auction", ErrUnauthorized)
		}
	case TriggerTimeout:
	default:
		return fmt.Errorf("unknown end trigger: %s", trigger)
	}

	if e.state.ended {
		return ErrAlreadyEnded
	}
	if trigger == TriggerManual && now.Before(e.cfg.StartTime) {
		return ErrAuctionNotActive
	}
	if trigger == TriggerTimeout && now.Before(e.state.endTime) {
		return ErrAuctionNotEnded
	}

	e.state.ended = true
	e.emit(model.Event{
		Type:        model.EventAuctionEnded,
		Participant: e.state.leader,
		Amount:      e.state.highest,
		OccurredAt:  now,
	})

	return e.settleLocked(ctx, now)
}

// ProcessPayments повторно запускает расчёт завершённого аукциона.
func (e *Engine) ProcessPayments(ctx context.Context, now time.Time) error {
	if err := e.lock(); err != nil {
		return err
	}
	defer e.unlock(ctx)

	if !e.state.ended {
		return ErrAuctionNotEnded
	}
	return e.settleLocked(ctx, now)
}

// settleLocked выполняет расчёт не более одного раза.
//
// Баланс каждого проигравшего обнуляется до перевода, поэтому повторный вызов не
// переводит уже выплаченное. При ошибке перевода баланс неудачного получателя
// восстанавливается, а флаг settled снимается, чтобы расчёт можно было повторить.
func (e *Engine) settleLocked(ctx context.Context, now time.Time) error {
	if e.state.settled {
		return ErrAlreadySettled
	}
	e.state.settled = true

	e.guard.Store(true)
	defer e.guard.Store(false)

	if e.state.highest == 0 {
		return nil
	}

	if e.payout == nil {
		commission := percentOf(e.state.highest, e.cfg.CommissionPercent)
		e.payout = &payout{
			leader:       e.state.leader,
			total:        e.state.highest,
			commission:   commission,
			sellerAmount: e.state.highest - commission,
		}
	}
	po := e.payout

	for _, id := range e.ledger.order {
		if id == po.leader {
			continue
		}
		p := e.ledger.participants[id]
		amount := p.total
		if amount == 0 {
			continue
		}

		p.total = 0

		if err := e.transfer(ctx, e.transferKey("settle-refund", id, amount, 0), id, amount); err != nil {
			p.total = amount
			e.state.settled = false
			return err
		}

		e.emit(model.Event{
			Type:        model.EventRefundIssued,
			Participant: id,
			Amount:      amount,
			OccurredAt:  now,
		})
	}

	if lp, ok := e.ledger.get(po.leader); ok {
		lp.total = 0
	}

	if !po.sellerPaid {
		if po.sellerAmount > 0 {
			if err := e.transfer(ctx, e.transferKey("seller", e.cfg.Seller, po.sellerAmount, 0), e.cfg.Seller, po.sellerAmount); err != nil {
				e.state.settled = false
				return err
			}
		}
		po.sellerPaid = true
	}

	if !po.commissionPaid {
		if po.commission > 0 {
			if err := e.transfer(ctx, e.transferKey("commission", e.cfg.Owner, po.commission, 0), e.cfg.Owner, po.commission); err != nil {
				e.state.settled = false
				return err
			}
		}
		po.commissionPaid = true
	}

	e.emit(model.Event{
		Type:         model.EventPaymentProcessed,
		Seller:       e.cfg.Seller,
		SellerAmount: po.sellerAmount,
		Owner:        e.cfg.Owner,
		Commission:   po.commission,
		OccurredAt:   now,
	})
	return nil
}
