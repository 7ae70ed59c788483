package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/escrow-auction/internal/auction"
	"github.com/mmeshcher/escrow-auction/internal/model"
	"github.com/mmeshcher/escrow-auction/internal/observability"
)

const journalWriteTimeout = 2 * time.Second

// recordingTransferer учитывает каждую попытку перевода в журнале и метриках.
type recordingTransferer struct {
	next    auction.Transferer
	journal Journal
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

func (r *recordingTransferer) Transfer(ctx context.Context, key, recipient string, amount int64) error {
	err := r.next.Transfer(ctx, key, recipient, amount)

	rec := model.TransferRecord{
		ID:             uuid.NewString(),
		IdempotencyKey: key,
		Recipient: recipient,
		Amount:    amount,
		Status:    model.TransferStatusSucceeded,
		CreatedAt: r.now(),
	}
	result := observability.ResultSuccess

	if err != nil {
		rec.Status = model.TransferStatusFailed
		rec.Error = err.Error()
		result = observability.ResultFailure
		r.logger.Error("transfer failed",
			zap.String("recipient", recipient), zap.Int64("amount", amount), zap.Error(err))
	}
	r.metrics.Transfers.WithLabelValues(result).Inc()

	if r.journal != nil {
		jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalWriteTimeout)
		defer cancel()
		if jerr := r.journal.SaveTransfer(jctx, rec); jerr != nil {
			r.logger.Error("failed to record transfer",
				zap.String("transfer_id", rec.ID), zap.Error(jerr))
		}
	}

	return err
}
