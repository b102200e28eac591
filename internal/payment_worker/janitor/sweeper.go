// Package janitor resolves payments whose payer never came back from the
// gateway checkout page.
package janitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alx-travel-payments/internal/config"
	"github.com/alx-travel-payments/internal/domain/payment"
	"github.com/alx-travel-payments/internal/platform/correlation"
	"github.com/google/uuid"
)

const reasonExpired = "payment expired without confirmation"

// PaymentResolver is the part of the workflow controller the sweeper drives
type PaymentResolver interface {
	ConfirmPayment(ctx context.Context, reference string) (*payment.Transaction, error)
	ExpirePayment(ctx context.Context, id uuid.UUID, reason string) (*payment.Transaction, error)
}

// StalePendingLister lists PENDING transactions created before a cutoff
type StalePendingLister interface {
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*payment.Transaction, error)
}

// SweepResult counts what one sweep did
type SweepResult struct {
	Scanned  int
	Resolved int // settled by re-verifying with the gateway
	Expired  int
	Skipped  int // left PENDING because the gateway could not be asked
}

// Sweeper periodically resolves stale PENDING transactions
type Sweeper struct {
	transactions StalePendingLister
	resolver     PaymentResolver
	logger       *slog.Logger
	interval     time.Duration
	staleAfter   time.Duration
	batchSize    int
	now          func() time.Time
}

func NewSweeper(cfg *config.JanitorConfig, transactions StalePendingLister, resolver PaymentResolver, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		transactions: transactions,
		resolver:     resolver,
		logger:       logger.With("component", "janitor"),
		interval:     cfg.Interval,
		staleAfter:   cfg.StaleAfter,
		batchSize:    cfg.BatchSize,
		now:          time.Now,
	}
}

// Start sweeps on every tick until ctx is canceled
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Starting payment janitor",
		"interval", s.interval.String(),
		"stale_after", s.staleAfter.String(),
		"batch_size", s.batchSize,
	)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Payment janitor stopping due to context cancellation.")
			return
		case <-ticker.C:
			result, err := s.Sweep(ctx)
			if err != nil {
				s.logger.Error("Payment janitor sweep failed", "error", err)
				continue
			}
			if result.Scanned > 0 {
				s.logger.Info("Payment janitor sweep finished",
					"scanned", result.Scanned,
					"resolved", result.Resolved,
					"expired", result.Expired,
					"skipped", result.Skipped,
				)
			}
		}
	}
}

// Sweep handles one batch of stale transactions. A transaction with a gateway
// reference is verified first so a payment that did go through is completed
// rather than expired. When the gateway is unreachable the transaction is left
// for the next sweep.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	cutoff := s.now().Add(-s.staleAfter)
	stale, err := s.transactions.ListStalePending(ctx, cutoff, s.batchSize)
	if err != nil {
		return result, fmt.Errorf("failed to list stale payments: %w", err)
	}
	result.Scanned = len(stale)

	for _, tx := range stale {
		txCtx := correlation.WithID(ctx, "janitor-"+tx.ID.String())
		logger := s.logger.With("transaction_id", tx.ID.String(), "booking_id", tx.BookingID.String())

		if ref := tx.Reference(); ref != "" {
			current, err := s.resolver.ConfirmPayment(txCtx, ref)
			switch {
			case err == nil && current.Status.IsTerminal():
				logger.Info("Stale payment resolved by gateway verification", "status", current.Status)
				result.Resolved++
				continue
			case err != nil && payment.IsRetryable(err):
				logger.Warn("Gateway unavailable, leaving stale payment for next sweep", "error", err)
				result.Skipped++
				continue
			case err != nil && !errors.Is(err, payment.ErrGatewayRejected):
				logger.Error("Failed to verify stale payment", "error", err)
				result.Skipped++
				continue
			}
		}

		current, err := s.resolver.ExpirePayment(txCtx, tx.ID, reasonExpired)
		if err != nil {
			logger.Error("Failed to expire stale payment", "error", err)
			result.Skipped++
			continue
		}
		if current.Status == payment.StatusFailed && current.FailureReason != nil && *current.FailureReason == reasonExpired {
			logger.Info("Stale payment expired")
			result.Expired++
		} else {
			result.Resolved++
		}
	}

	return result, nil
}
