// Package model содержит доменные сущности сервиса аукциона с эскроу.
package model

import "time"

// EventType описывает тип уведомления аукциона.
type EventType string

const (
	// EventBidAccepted принятая ставка, Amount содержит новый итог участника.
	EventBidAccepted EventType = "bid_accepted"
	// EventAuctionEnded аукцион закрыт, Participant содержит победителя.
	EventAuctionEnded EventType = "auction_ended"
	// EventRefundIssued проигравшему возвращён весь залог при расчёте.
	EventRefundIssued EventType = "refund_issued"
	// EventPartialRefundIssued участник забрал часть своего итога до окончания торгов.
	EventPartialRefundIssued EventType = "partial_refund_issued"
	// EventPaymentProcessed продавец и владелец получили выплаты.
	EventPaymentProcessed EventType = "payment_processed"
)

// Event описывает уведомление, порождённое изменяющей операцией аукциона.
// Набор заполненных полей зависит от типа события.
type Event struct {
	ID          string    `json:"id"`
	Sequence    int64     `json:"sequence"`
	Type        EventType `json:"type"`
	Participant string    `json:"participant,omitempty"`
	Amount      int64     `json:"amount,omitempty"`

	Seller       string `json:"seller,omitempty"`
	SellerAmount int64  `json:"seller_amount,omitempty"`
	Owner        string `json:"owner,omitempty"`
	Commission   int64  `json:"commission,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}

// Bidder описывает участника торгов и сумму, удерживаемую за ним в эскроу.
type Bidder struct {
	Identity string `json:"identity"`
	Total    int64  `json:"total"`
}

// AuctionInfo содержит согласованный снимок состояния аукциона.
type AuctionInfo struct {
	Owner            string        `json:"owner"`
	Seller           string        `json:"seller"`
	Item             string        `json:"item"`
	StartTime        time.Time     `json:"start_time"`
	EndTime          time.Time     `json:"end_time"`
	Leader           string        `json:"leader,omitempty"`
	HighestTotal     int64         `json:"highest_total"`
	MinimumNext      int64         `json:"minimum_next_total"`
	BidderCount      int           `json:"bidder_count"`
	Ended            bool          `json:"ended"`
	Settled          bool          `json:"settled"`
	RemainingTime    time.Duration `json:"-"`
	RemainingSeconds int64         `json:"remaining_seconds"`
}

// TransferStatus описывает результат попытки перевода средств.
type TransferStatus string

const (
	// TransferStatusSucceeded внешняя система подтвердила перевод.
	TransferStatusSucceeded TransferStatus = "SUCCEEDED"
	// TransferStatusFailed перевод не выполнен, причина в поле Error.
	TransferStatusFailed TransferStatus = "FAILED"
)

// TransferRecord описывает одну попытку перевода через внешнюю систему.
type TransferRecord struct {
	ID string
	// IdempotencyKey общий для всех попыток одного перевода.
	IdempotencyKey string
	Recipient      string
	Amount         int64
	Status         TransferStatus
	Error          string
	CreatedAt      time.Time
}
