package domain

import (
	"encoding/base64"
)

// EncryptedBlob is the decoded form of a tenant-scoped ciphertext.
type EncryptedBlob struct {
	Salt       []byte
	Nonce      []byte
	TenantTag  []byte
	Ciphertext []byte // ciphertext with the GCM authentication tag appended
}

// Encode concatenates the blob fields and encodes them with standard base64.
func (b *EncryptedBlob) Encode() string {
	buf := make([]byte, 0, HeaderSize+len(b.Ciphertext))
	buf = append(buf, b.Salt...)
	buf = append(buf, b.Nonce...)
	buf = append(buf, b.TenantTag...)
	buf = append(buf, b.Ciphertext...)
	return base64.StdEncoding.EncodeToString(buf)
}

// ParseEncryptedBlob decodes a blob and splits it by fixed offsets.
// Any malformation yields ErrDecryptionFailed.
func ParseEncryptedBlob(encoded string) (*EncryptedBlob, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	if len(raw) < MinBlobSize {
		return nil, ErrDecryptionFailed
	}

	return &EncryptedBlob{
		Salt:       raw[:SaltSize],
		Nonce:      raw[SaltSize : SaltSize+NonceSize],
		TenantTag:  raw[SaltSize+NonceSize : HeaderSize],
		Ciphertext: raw[HeaderSize:],
	}, nil
}
