package service

import (
	"context"
	"log/slog"

	cryptoDomain "github.com/allisson/connectors/internal/crypto/domain"
)

// MasterSecretSource describes where the master secret comes from.
type MasterSecretSource struct {
	// Secret is the raw MASTER_SECRET value, or base64 KMS ciphertext when KMSKeyURI is set.
	Secret string
	// KMSKeyURI enables KMS unwrapping of Secret.
	KMSKeyURI string
	// AllowInsecureDefault permits the fixed development secret when Secret is empty.
	AllowInsecureDefault bool
}

// LoadMasterSecret resolves the process master secret once at startup.
//
// An empty secret is fatal unless AllowInsecureDefault is set, in which case the development
// fallback is returned and an error level log entry is emitted. A secret shorter than
// cryptoDomain.MinMasterSecretSize is always rejected.
func LoadMasterSecret(
	ctx context.Context,
	source MasterSecretSource,
	kms KMSService,
	logger *slog.Logger,
) (*cryptoDomain.MasterSecret, error) {
	if source.Secret == "" {
		if !source.AllowInsecureDefault {
			return nil, cryptoDomain.ErrMasterSecretNotSet
		}
		logger.Error("MASTER_SECRET is not set, using the insecure development master secret",
			slog.Bool("insecure_dev_master_secret", true),
		)
		return cryptoDomain.NewInsecureDevMasterSecret(), nil
	}

	raw := []byte(source.Secret)
	if source.KMSKeyURI != "" {
		unwrapped, err := kms.UnwrapMasterSecret(ctx, source.KMSKeyURI, source.Secret)
		if err != nil {
			return nil, err
		}
		raw = unwrapped
		defer cryptoDomain.Wipe(unwrapped)
	}

	masterSecret, err := cryptoDomain.NewMasterSecret(raw)
	if err != nil {
		return nil, err
	}

	logger.Info("master secret loaded", slog.Bool("kms_wrapped", source.KMSKeyURI != ""))
	return masterSecret, nil
}
