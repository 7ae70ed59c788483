package auction

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/mmeshcher/escrow-auction/internal/model"
)

// Bid зачисляет amount в эскроу участника bidder.
//
// Новая сумма участника должна строго превышать сумму лидера плюс
// floor(leaderTotal*MinIncreasePercent/100), кроме случая, когда ставок ещё не было.
// Ставка, сделавшая участника лидером в пределах окна продления, переносит срок
// окончания на now+ExtensionWindow.
func (e *Engine) Bid(ctx context.Context, bidder string, amount int64, now time.Time) error {
	if bidder == "" {
		return fmt.Errorf("%w: bidder identity is required", ErrUnauthorized)
	}
	if amount <= 0 {
		return fmt.Errorf("%w: bid amount must be positive", ErrInvalidAmount)
	}

	if err := e.lock(); err != nil {
		return err
	}
	defer e.unlock(ctx)

	if !e.activeLocked(now) {
		return ErrAuctionNotActive
	}

	current := e.ledger.total(bidder)
	if amount > math.MaxInt64-current {
		return fmt.Errorf("%w: escrow total overflow", ErrInvalidAmount)
	}
	newTotal := current + amount

	if e.state.highest != 0 && !exceedsIncrease(newTotal, e.state.highest, e.cfg.MinIncreasePercent) {
		return fmt.Errorf("%w: total %d must exceed %s", ErrBidTooLow,
			newTotal, increaseThreshold(e.state.highest, e.cfg.MinIncreasePercent))
	}

	e.ledger.deposit(bidder, amount)

	if newTotal > e.state.highest {
		e.state.leader = bidder
		e.state.highest = newTotal
		if e.state.endTime.Sub(now) < e.cfg.ExtensionWindow {
			e.state.endTime = now.Add(e.cfg.ExtensionWindow)
		}
	}

	e.emit(model.Event{
		Type:        model.EventBidAccepted,
		Participant: bidder,
		Amount:      amount,
		OccurredAt:  now,
	})
	return nil
}
