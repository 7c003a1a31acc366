package app

import (
	"fmt"

	cryptoDomain "github.com/allisson/connectors/internal/crypto/domain"
	cryptoService "github.com/allisson/connectors/internal/crypto/service"
	oauthService "github.com/allisson/connectors/internal/oauth/service"
)

// KMSService returns the KMS service used to unwrap the master secret.
func (c *Container) KMSService() cryptoService.KMSService {
	svc, _ := c.kmsService.get(func() (cryptoService.KMSService, error) {
		return cryptoService.NewKMSService(), nil
	})
	return svc
}

// MasterSecret returns the process master secret, unwrapped through KMS when configured.
// Outside development a missing secret is fatal.
func (c *Container) MasterSecret() (*cryptoDomain.MasterSecret, error) {
	return c.masterSecret.get(func() (*cryptoDomain.MasterSecret, error) {
		ms, err := cryptoService.LoadMasterSecret(
			c.ctx,
			cryptoService.MasterSecretSource{
				Secret:               c.config.MasterSecret,
				KMSKeyURI:            c.config.KMSKeyURI,
				AllowInsecureDefault: c.config.IsDevelopment(),
			},
			c.KMSService(),
			c.Logger(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to load master secret: %w", err)
		}
		return ms, nil
	})
}

// TenantCipher returns the tenant-scoped token cipher.
func (c *Container) TenantCipher() (cryptoService.TenantCipher, error) {
	return c.tenantCipher.get(func() (cryptoService.TenantCipher, error) {
		ms, err := c.MasterSecret()
		if err != nil {
			return nil, err
		}
		deriver := cryptoService.NewTenantKeyDeriver(
			ms,
			cryptoService.ScryptParams{N: c.config.ScryptN, R: c.config.ScryptR, P: c.config.ScryptP},
			c.config.KeyDerivationConcurrency,
		)
		return cryptoService.NewTenantCipher(deriver), nil
	})
}

// StateSigner returns the OAuth state signer.
func (c *Container) StateSigner() (oauthService.StateSigner, error) {
	return c.stateSigner.get(func() (oauthService.StateSigner, error) {
		ms, err := c.MasterSecret()
		if err != nil {
			return nil, err
		}
		signer, err := oauthService.NewStateSigner(ms, oauthService.WithMaxAge(c.config.OAuthStateMaxAge))
		if err != nil {
			return nil, fmt.Errorf("failed to create state signer: %w", err)
		}
		return signer, nil
	})
}
