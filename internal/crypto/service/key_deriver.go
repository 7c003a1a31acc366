package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/scrypt"
	"golang.org/x/sync/semaphore"

	cryptoDomain "github.com/allisson/connectors/internal/crypto/domain"
)

// ScryptParams holds the scrypt cost parameters.
type ScryptParams struct {
	N int
	R int
	P int
}

// DefaultScryptParams returns N=16384, r=8, p=1.
func DefaultScryptParams() ScryptParams {
	return ScryptParams{N: 16384, R: 8, P: 1}
}

// tenantKeyDeriver derives tenant keys in two stages:
//
//  1. material = HMAC-SHA256(masterSecret, "tenant:" + tenantID)
//  2. key = scrypt(material, salt, N, r, p, 32)
//
// The tenant tag is the first TenantTagSize bytes of material. scrypt is memory hard, so
// concurrent derivations are bounded by a weighted semaphore.
type tenantKeyDeriver struct {
	masterSecret *cryptoDomain.MasterSecret
	params       ScryptParams
	sem          *semaphore.Weighted
}

// NewTenantKeyDeriver creates a TenantKeyDeriver. concurrency below 1 is treated as 1.
func NewTenantKeyDeriver(
	masterSecret *cryptoDomain.MasterSecret,
	params ScryptParams,
	concurrency int,
) TenantKeyDeriver {
	if concurrency < 1 {
		concurrency = 1
	}
	return &tenantKeyDeriver{
		masterSecret: masterSecret,
		params:       params,
		sem:          semaphore.NewWeighted(int64(concurrency)),
	}
}

func (d *tenantKeyDeriver) keyMaterial(tenantID string) []byte {
	secret := d.masterSecret.Bytes()
	defer cryptoDomain.Wipe(secret)

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(cryptoDomain.TenantLabelPrefix + tenantID))
	return mac.Sum(nil)
}

// TenantTag returns the first 8 bytes of the tenant key material.
func (d *tenantKeyDeriver) TenantTag(tenantID string) []byte {
	material := d.keyMaterial(tenantID)
	defer cryptoDomain.Wipe(material)

	tag := make([]byte, cryptoDomain.TenantTagSize)
	copy(tag, material[:cryptoDomain.TenantTagSize])
	return tag
}

// DeriveTenantKey waits for a derivation slot, honoring ctx cancellation, and runs scrypt.
func (d *tenantKeyDeriver) DeriveTenantKey(
	ctx context.Context,
	tenantID string,
	salt []byte,
) ([]byte, error) {
	if tenantID == "" {
		return nil, cryptoDomain.ErrInvalidTenantID
	}
	if len(salt) != cryptoDomain.SaltSize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}

	if err := d.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer d.sem.Release(1)

	material := d.keyMaterial(tenantID)
	defer cryptoDomain.Wipe(material)

	key, err := scrypt.Key(material, salt, d.params.N, d.params.R, d.params.P, cryptoDomain.KeySize)
	if err != nil {
		return nil, fmt.Errorf("failed to derive tenant key: %w", err)
	}
	return key, nil
}
