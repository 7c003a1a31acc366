package commands

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"

	cryptoDomain "github.com/allisson/connectors/internal/crypto/domain"
	cryptoService "github.com/allisson/connectors/internal/crypto/service"
)

// masterSecretSize is the amount of random material in a generated master secret.
const masterSecretSize = 32

// RunCreateMasterSecret generates a random master secret and prints the environment
// variables that configure it.
//
// Without kmsKeyURI the secret is printed base64url encoded and used as is. With kmsKeyURI
// the raw material is wrapped by the KMS and MASTER_SECRET carries the base64 ciphertext.
// For local development use kmsKeyURI="base64key://<32-byte-base64-key>".
func RunCreateMasterSecret(
	ctx context.Context,
	kmsService cryptoService.KMSService,
	logger *slog.Logger,
	writer io.Writer,
	kmsKeyURI string,
) error {
	raw := make([]byte, masterSecretSize)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("failed to generate master secret: %w", err)
	}
	defer cryptoDomain.Wipe(raw)

	if kmsKeyURI == "" {
		secret := base64.RawURLEncoding.EncodeToString(raw)
		_, _ = fmt.Fprintln(writer, "# Master secret configuration")
		_, _ = fmt.Fprintln(writer, "# Store this value in your secrets manager. Losing it makes every stored token unreadable.")
		_, _ = fmt.Fprintln(writer)
		_, _ = fmt.Fprintf(writer, "MASTER_SECRET=%q\n", secret)
		logger.Info("master secret created", slog.Bool("kms_wrapped", false))
		return nil
	}

	wrapped, err := kmsService.WrapMasterSecret(ctx, kmsKeyURI, raw)
	if err != nil {
		return fmt.Errorf("failed to wrap master secret: %w", err)
	}

	_, _ = fmt.Fprintln(writer, "# Master secret configuration (KMS mode)")
	_, _ = fmt.Fprintln(writer, "# MASTER_SECRET holds the KMS ciphertext; the plain secret never leaves the process.")
	_, _ = fmt.Fprintln(writer)
	_, _ = fmt.Fprintf(writer, "KMS_KEY_URI=%q\n", kmsKeyURI)
	_, _ = fmt.Fprintf(writer, "MASTER_SECRET=%q\n", wrapped)
	logger.Info("master secret created", slog.Bool("kms_wrapped", true))
	return nil
}
