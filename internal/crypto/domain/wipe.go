package domain

// Wipe overwrites key material, tenant key derivation inputs and unwrapped master secrets
// with zeros once they are no longer needed. Nil buffers are skipped.
func Wipe(buffers ...[]byte) {
	for _, b := range buffers {
		clear(b)
	}
}
