package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	authUseCase "github.com/allisson/connectors/internal/auth/usecase"
)

// RunUnlockClient clears the lockout and failed attempt counter of an API client.
//
// Requirements: Database must be migrated and the client must exist.
func RunUnlockClient(
	ctx context.Context,
	clientUseCase authUseCase.ClientUseCase,
	logger *slog.Logger,
	writer io.Writer,
	clientIDStr string,
) error {
	clientID, err := uuid.Parse(clientIDStr)
	if err != nil {
		return fmt.Errorf("invalid client ID format: %w", err)
	}

	client, err := clientUseCase.Get(ctx, clientID)
	if err != nil {
		return fmt.Errorf("failed to get client: %w", err)
	}
	wasLocked := client.IsLocked(time.Now().UTC())

	if err := clientUseCase.Unlock(ctx, clientID); err != nil {
		return fmt.Errorf("failed to unlock client: %w", err)
	}

	if wasLocked {
		_, _ = fmt.Fprintf(writer, "Client %s unlocked.\n", clientID)
	} else {
		_, _ = fmt.Fprintf(writer, "Client %s was not locked; failed attempts reset.\n", clientID)
	}

	logger.Info("client unlocked",
		slog.String("client_id", clientID.String()),
		slog.String("tenant_id", client.TenantID),
		slog.Bool("was_locked", wasLocked),
	)
	return nil
}
