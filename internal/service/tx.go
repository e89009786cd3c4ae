package service

import (
	"context"
	"fmt"

	"ku-isoko/internal/events"
	"ku-isoko/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// inTx runs fn in a transaction, committing when it returns nil and rolling
// back otherwise.
func inTx(ctx context.Context, txr repository.Transactor, logger zerolog.Logger, fn func(tx pgx.Tx) error) error {
	tx, err := txr.BeginTx(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to begin transaction")
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			logger.Error().Err(rbErr).Msg("failed to rollback transaction")
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to commit transaction")
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// publish sends ev and logs a failure. Events never fail the caller.
func publish(ctx context.Context, pub events.Publisher, logger zerolog.Logger, ev events.Event) {
	if err := pub.Publish(ctx, ev); err != nil {
		logger.Warn().Err(err).Str("event", string(ev.Type)).Msg("failed to publish event")
	}
}
