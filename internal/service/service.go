// Package service связывает движок аукциона с журналом, метриками и логированием.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/escrow-auction/internal/auction"
	"github.com/mmeshcher/escrow-auction/internal/model"
	"github.com/mmeshcher/escrow-auction/internal/observability"
)

// ErrJournalDisabled возвращается при запросе журнала, если хранилище не настроено.
var ErrJournalDisabled = errors.New("event journal is not configured")

// Journal описывает хранилище журнала событий и переводов.
type Journal interface {
	Close() error
	SaveEvents(ctx context.Context, events []model.Event) error
	SaveTransfer(ctx context.Context, rec model.TransferRecord) error
	GetEvents(ctx context.Context, limit int) ([]model.Event, error)
}

// Service выполняет операции аукциона с текущим временем и учитывает их в метриках.
type Service struct {
	engine  *auction.Engine
	journal Journal
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time

	// Состояние повторов расчёта, используется только горутиной наблюдателя.
	settleDelays   []time.Duration
	settleFailures int
	settleRetryAt  time.Time
}

// NewService создаёт движок аукциона с указанными параметрами. journal может быть nil.
func NewService(
	cfg auction.Config,
	transfers auction.Transferer,
	notifier auction.Notifier,
	journal Journal,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*Service, error) {
	s := &Service{
		journal:      journal,
		metrics:      metrics,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
		settleDelays: settleRetryDelays,
	}

	recorder := &recordingTransferer{
		next:    transfers,
		journal: journal,
		metrics: metrics,
		logger:  logger,
		now:     func() time.Time { return s.now() },
	}

	engine, err := auction.New(cfg, recorder, notifier)
	if err != nil {
		return nil, fmt.Errorf("create auction engine: %w", err)
	}
	s.engine = engine

	return s, nil
}

// Close закрывает журнал.
func (s *Service) Close() error {
	if s.journal != nil {
		return s.journal.Close()
	}
	return nil
}

// PlaceBid принимает ставку участника.
func (s *Service) PlaceBid(ctx context.Context, bidder string, amount int64) error {
	err := s.engine.Bid(ctx, bidder, amount, s.now())
	if err != nil {
		s.metrics.Bids.WithLabelValues(observability.ResultRejected, reason(err)).Inc()
		s.logger.Info("bid rejected",
			zap.String("bidder", bidder), zap.Int64("amount", amount), zap.Error(err))
		return err
	}

	s.metrics.Bids.WithLabelValues(observability.ResultAccepted, reason(nil)).Inc()
	s.metrics.HighestTotal.Set(float64(s.engine.Info(s.now()).HighestTotal))
	return nil
}

// RequestRefund возвращает участнику вытесненные суммы и возвращает размер возврата.
func (s *Service) RequestRefund(ctx context.Context, requester string) (int64, error) {
	amount, err := s.engine.RequestPartialRefund(ctx, requester, s.now())
	if err != nil {
		s.metrics.Refunds.WithLabelValues(observability.ResultRejected).Inc()
		s.logRejection("partial refund rejected", err, zap.String("requester", requester))
		return 0, err
	}

	s.metrics.Refunds.WithLabelValues(observability.ResultAccepted).Inc()
	return amount, nil
}

// EndAuction завершает аукцион по запросу владельца.
func (s *Service) EndAuction(ctx context.Context, caller string) error {
	err := s.engine.End(ctx, caller, s.now(), auction.TriggerManual)
	s.observeSettlement(auction.TriggerManual.String(), err)
	if err != nil {
		s.logRejection("manual end rejected", err, zap.String("caller", caller))
	}
	return err
}

// ProcessPayments повторяет расчёт завершённого аукциона.
func (s *Service) ProcessPayments(ctx context.Context) error {
	err := s.engine.ProcessPayments(ctx, s.now())
	s.observeSettlement("process", err)
	if err != nil {
		s.logRejection("payment processing rejected", err)
	}
	return err
}

// Winner возвращает победителя и его сумму.
func (s *Service) Winner() (string, int64, error) {
	return s.engine.Winner()
}

// Bidders возвращает участников в порядке регистрации.
func (s *Service) Bidders() []model.Bidder {
	return s.engine.Bidders()
}

// RemainingTime возвращает время до окончания торгов.
func (s *Service) RemainingTime() time.Duration {
	return s.engine.RemainingTime(s.now())
}

// Info возвращает состояние аукциона.
func (s *Service) Info() model.AuctionInfo {
	return s.engine.Info(s.now())
}

// RefundHistory возвращает вытесненные суммы участника.
func (s *Service) RefundHistory(identity string) []int64 {
	return s.engine.RefundHistory(identity)
}

// Events возвращает последние события из журнала.
func (s *Service) Events(ctx context.Context, limit int) ([]model.Event, error) {
	if s.journal == nil {
		return nil, ErrJournalDisabled
	}
	return s.journal.GetEvents(ctx, limit)
}

func (s *Service) observeSettlement(trigger string, err error) {
	result := observability.ResultSuccess
	switch {
	case err == nil:
	case errors.Is(err, auction.ErrTransferFailed):
		result = observability.ResultFailure
	default:
		result = observability.ResultRejected
	}
	s.metrics.Settlements.WithLabelValues(trigger, result).Inc()
}

func (s *Service) logRejection(msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	if errors.Is(err, auction.ErrTransferFailed) {
		s.logger.Error(msg, fields...)
		return
	}
	s.logger.Info(msg, fields...)
}

func reason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, auction.ErrBidTooLow):
		return "too_low"
	case errors.Is(err, auction.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, auction.ErrAuctionNotActive):
		return "not_active"
	case errors.Is(err, auction.ErrReentrantCall):
		return "busy"
	case errors.Is(err, auction.ErrUnauthorized):
		return "unauthorized"
	default:
		return "other"
	}
}
