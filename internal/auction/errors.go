package auction

import "errors"

// Ошибки, которыми движок аукциона отклоняет операции. Каждая отклонённая операция
// не меняет состояние, за исключением ErrTransferFailed при расчёте (см. ProcessPayments).
var (
	// ErrInvalidConfig возвращается, если параметры аукциона некорректны.
	ErrInvalidConfig = errors.New("invalid auction config")
	// ErrAuctionNotActive возвращается при ставке или возврате вне окна торгов.
	ErrAuctionNotActive = errors.New("auction is not active")
	// ErrBidTooLow возвращается, если ставка не превышает порог минимального повышения.
	ErrBidTooLow = errors.New("bid too low")
	// ErrInvalidAmount возвращается для неположительной суммы или переполнения эскроу.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrNotEligible возвращается, если участник не может запросить частичный возврат.
	ErrNotEligible = errors.New("not eligible for refund")
	// ErrAuctionNotEnded возвращается, если условие завершения ещё не выполнено.
	ErrAuctionNotEnded = errors.New("auction not yet ended")
	// ErrAlreadyEnded возвращается при повторном завершении аукциона.
	ErrAlreadyEnded = errors.New("auction already ended")
	// ErrAlreadySettled возвращается при повторном расчёте.
	ErrAlreadySettled = errors.New("auction already settled")
	// ErrTransferFailed возвращается, если внешний перевод средств не удался.
	ErrTransferFailed = errors.New("transfer failed")
	// ErrUnauthorized возвращается, если вызывающий не имеет права на операцию.
	ErrUnauthorized = errors.New("caller not authorized")
	// ErrReentrantCall возвращается изменяющему вызову, пришедшему во время исходящего перевода.
	ErrReentrantCall = errors.New("call rejected while a disbursement is in flight")
)
