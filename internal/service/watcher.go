package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/escrow-auction/internal/auction"
)

// settleRetryDelays задаёт паузы между повторами неудачного расчёта.
// После исчерпания списка используется последняя пауза.
var settleRetryDelays = []time.Duration{
	1 * time.Second,
	3 * time.Second,
	5 * time.Second,
	15 * time.Second,
	30 * time.Second,
	time.Minute,
}

// RunFinalizeWatcher проверяет срок окончания торгов с интервалом interval.
// После истечения срока завершает аукцион, а при ошибке расчёта повторяет его
// с нарастающей паузой. Возвращает управление после успешного расчёта или отмены ctx.
func (s *Service) RunFinalizeWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.finalizeTick(ctx) {
				s.logger.Info("auction settled, finalize watcher stopped")
				return
			}
		}
	}
}

// finalizeTick возвращает true, когда расчёт выполнен и наблюдение больше не нужно.
func (s *Service) finalizeTick(ctx context.Context) bool {
	now := s.now()
	info := s.engine.Info(now)

	var (
		err     error
		trigger string
	)
	switch {
	case info.Settled:
		return true
	case now.Before(s.settleRetryAt):
		return false
	case !info.Ended:
		if now.Before(info.EndTime) {
			return false
		}
		trigger = auction.TriggerTimeout.String()
		err = s.engine.End(ctx, "", now, auction.TriggerTimeout)
	default:
		trigger = "process"
		err = s.engine.ProcessPayments(ctx, now)
	}

	switch {
	case err == nil:
		s.observeSettlement(trigger, nil)
		s.settleFailures = 0
		s.settleRetryAt = time.Time{}
		return true
	case errors.Is(err, auction.ErrAlreadySettled):
		return true
	case errors.Is(err, auction.ErrAlreadyEnded),
		errors.Is(err, auction.ErrAuctionNotEnded),
		errors.Is(err, auction.ErrReentrantCall):
		return false
	default:
		s.observeSettlement(trigger, err)
		delay := s.nextSettleDelay()
		s.settleRetryAt = now.Add(delay)
		s.logger.Warn("settlement attempt failed, will retry",
			zap.String("trigger", trigger),
			zap.Int("failures", s.settleFailures),
			zap.Duration("retry_in", delay),
			zap.Error(err))
		return false
	}
}

func (s *Service) nextSettleDelay() time.Duration {
	s.settleFailures++
	if len(s.settleDelays) == 0 {
		return 0
	}
	i := s.settleFailures - 1
	if i >= len(s.settleDelays) {
		i = len(s.settleDelays) - 1
	}
	return s.settleDelays[i]
}
