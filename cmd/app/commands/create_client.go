package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	authDomain "github.com/allisson/connectors/internal/auth/domain"
	authUseCase "github.com/allisson/connectors/internal/auth/usecase"
)

// RunCreateClient creates an API client bound to tenantID and prints its id and secret.
// policiesJSON is an optional JSON array of policy documents; when empty the client gets
// the default connector and audit policies.
//
// Requirements: Database must be migrated and accessible.
func RunCreateClient(
	ctx context.Context,
	clientUseCase authUseCase.ClientUseCase,
	logger *slog.Logger,
	writer io.Writer,
	tenantID string,
	name string,
	isActive bool,
	policiesJSON string,
	format string,
) error {
	logger.Info("creating new client", slog.String("tenant_id", tenantID), slog.String("name", name))

	policies, err := parsePolicies(policiesJSON)
	if err != nil {
		return err
	}

	output, err := clientUseCase.Create(ctx, &authDomain.CreateClientInput{
		TenantID: tenantID,
		Name:     name,
		IsActive: isActive,
		Policies: policies,
	})
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	if format == FormatJSON {
		if err := writeJSON(writer, map[string]string{
			"client_id": output.ID.String(),
			"tenant_id": output.TenantID,
			"secret":    output.PlainSecret,
		}); err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprintln(writer, "Client created successfully!")
		_, _ = fmt.Fprintf(writer, "Client ID: %s\n", output.ID.String())
		_, _ = fmt.Fprintf(writer, "Tenant ID: %s\n", output.TenantID)
		_, _ = fmt.Fprintf(writer, "Secret: %s\n", output.PlainSecret)
		_, _ = fmt.Fprintln(writer, "\nIMPORTANT: The secret is shown only once. Store it securely.")
	}

	logger.Info("client created successfully",
		slog.String("client_id", output.ID.String()),
		slog.String("tenant_id", output.TenantID),
		slog.Bool("is_active", isActive),
	)
	return nil
}

// parsePolicies decodes policy documents and rejects unknown capabilities.
// Empty input yields nil, which selects the default policies.
func parsePolicies(policiesJSON string) ([]authDomain.PolicyDocument, error) {
	if policiesJSON == "" {
		return nil, nil
	}

	var policies []authDomain.PolicyDocument
	if err := json.Unmarshal([]byte(policiesJSON), &policies); err != nil {
		return nil, fmt.Errorf("failed to parse policies JSON: %w", err)
	}
	if len(policies) == 0 {
		return nil, fmt.Errorf("at least one policy is required")
	}

	for _, policy := range policies {
		if policy.Path == "" {
			return nil, fmt.Errorf("policy path cannot be empty")
		}
		if len(policy.Capabilities) == 0 {
			return nil, fmt.Errorf("policy %q has no capabilities", policy.Path)
		}
		for _, capability := range policy.Capabilities {
			if _, err := authDomain.ParseCapability(string(capability)); err != nil {
				return nil, fmt.Errorf("policy %q: %w", policy.Path, err)
			}
		}
	}
	return policies, nil
}
