package auction

import (
	"time"

	"github.com/mmeshcher/escrow-auction/internal/model"
)

// Winner возвращает лидера и его сумму. Доступно только после завершения.
func (e *Engine) Winner() (string, int64, error) {
	s := e.snap.Load()
	if !s.state.ended {
		return "", 0, ErrAuctionNotEnded
	}
	return s.state.leader, s.state.highest, nil
}

// Bidders возвращает всех участников в порядке первой ставки.
func (e *Engine) Bidders() []model.Bidder {
	s := e.snap.Load()
	res := make([]model.Bidder, len(s.bidders))
	copy(res, s.bidders)
	return res
}

// RemainingTime возвращает время до окончания торгов.
func (e *Engine) RemainingTime(now time.Time) time.Duration {
	return remaining(e.snap.Load().state, now)
}

// RefundHistory возвращает вытесненные суммы участника, доступные для возврата.
func (e *Engine) RefundHistory(id string) []int64 {
	h := e.snap.Load().histories[id]
	res := make([]int64, len(h))
	copy(res, h)
	return res
}

// Info возвращает полный снимок состояния аукциона.
func (e *Engine) Info(now time.Time) model.AuctionInfo {
	s := e.snap.Load()
	rem := remaining(s.state, now)

	minNext := int64(1)
	if s.state.highest > 0 {
		minNext = s.state.highest + percentOf(s.state.highest, e.cfg.MinIncreasePercent) + 1
	}

	return model.AuctionInfo{
		Owner:            e.cfg.Owner,
		Seller:           e.cfg.Seller,
		Item:             e.cfg.Item,
		StartTime:        e.cfg.StartTime,
		EndTime:          s.state.endTime,
		Leader:           s.state.leader,
		HighestTotal:     s.state.highest,
		MinimumNext:      minNext,
		BidderCount:      len(s.bidders),
		Ended:            s.state.ended,
		Settled:          s.state.settled,
		RemainingTime:    rem,
		RemainingSeconds: int64(rem / time.Second),
	}
}

func remaining(s state, now time.Time) time.Duration {
	if s.ended || !now.Before(s.endTime) {
		return 0
	}
	return s.endTime.Sub(now)
}
