package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/allisson/connectors/internal/scheduler"
)

// Background job names.
const (
	JobNonceSweep        = "nonce_sweep"
	JobCredentialRefresh = "credential_refresh"
	JobTokenPurge        = "token_purge"
)

// tokenPurgeSchedule runs the expired bearer token purge once an hour.
const tokenPurgeSchedule = "@hourly"

// Scheduler returns the background job scheduler with every job registered. The caller
// starts and stops it.
func (c *Container) Scheduler() (*scheduler.Scheduler, error) {
	return c.scheduler.get(c.initScheduler)
}

func (c *Container) initScheduler() (*scheduler.Scheduler, error) {
	logger := c.Logger()
	s := scheduler.New(logger)

	nonces, err := c.NonceRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce registry for scheduler: %w", err)
	}
	err = s.Add(JobNonceSweep, scheduler.Every(c.config.NonceSweepInterval), func(ctx context.Context) error {
		removed, err := nonces.Sweep(ctx)
		if err != nil {
			return err
		}
		if removed > 0 {
			logger.Debug("expired nonces swept", slog.Int("removed", removed))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if c.config.CredentialRefreshSchedule != "" {
		lifecycle, err := c.LifecycleUseCase()
		if err != nil {
			return nil, fmt.Errorf("failed to get lifecycle use case for scheduler: %w", err)
		}
		err = s.Add(JobCredentialRefresh, c.config.CredentialRefreshSchedule, func(ctx context.Context) error {
			refreshed, err := lifecycle.RefreshExpiring(ctx)
			if refreshed > 0 {
				logger.Info("expiring credentials refreshed", slog.Int("refreshed", refreshed))
			}
			return err
		})
		if err != nil {
			return nil, err
		}
	}

	tokenUseCase, err := c.TokenUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get token use case for scheduler: %w", err)
	}
	err = s.Add(JobTokenPurge, tokenPurgeSchedule, func(ctx context.Context) error {
		deleted, err := tokenUseCase.PurgeExpired(ctx)
		if err != nil {
			return err
		}
		if deleted > 0 {
			logger.Info("expired tokens purged", slog.Int64("deleted", deleted))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s, nil
}
