package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	connectorUseCase "github.com/allisson/connectors/internal/connector/usecase"
)

// RunRefreshCredentials refreshes every active credential inside the refresh window once.
// Failures of individual tenants are logged by the use case and do not fail the command.
//
// Requirements: Database must be migrated and MASTER_SECRET must match the one used to
// store the credentials.
func RunRefreshCredentials(
	ctx context.Context,
	lifecycle connectorUseCase.LifecycleUseCase,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	logger.Info("refreshing expiring credentials")

	refreshed, err := lifecycle.RefreshExpiring(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh credentials after %d refresh(es): %w", refreshed, err)
	}

	if format == FormatJSON {
		if err := writeJSON(writer, map[string]any{"refreshed": refreshed}); err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprintf(writer, "Refreshed %d credential(s)\n", refreshed)
	}

	logger.Info("refresh completed", slog.Int("refreshed", refreshed))
	return nil
}
