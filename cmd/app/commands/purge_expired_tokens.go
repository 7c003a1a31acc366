package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	authUseCase "github.com/allisson/connectors/internal/auth/usecase"
)

// RunPurgeExpiredTokens deletes bearer tokens past their expiry. The server runs the same
// purge hourly; this command is for one-off cleanups.
//
// Requirements: Database must be migrated and accessible.
func RunPurgeExpiredTokens(
	ctx context.Context,
	tokenUseCase authUseCase.TokenUseCase,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	logger.Info("purging expired tokens")

	count, err := tokenUseCase.PurgeExpired(ctx)
	if err != nil {
		return fmt.Errorf("failed to purge expired tokens: %w", err)
	}

	if format == FormatJSON {
		if err := writeJSON(writer, map[string]any{"deleted": count}); err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprintf(writer, "Deleted %d expired token(s)\n", count)
	}

	logger.Info("purge completed", slog.Int64("deleted", count))
	return nil
}
