package domain

// Capability names an operation a client may perform on a path.
type Capability string

const (
	// ReadCapability allows listing connectors and testing connections.
	ReadCapability Capability = "read"

	// WriteCapability allows starting an OAuth authorization.
	WriteCapability Capability = "write"

	// DeleteCapability allows disconnecting a connector.
	DeleteCapability Capability = "delete"
)

// ParseCapability validates a capability name.
func ParseCapability(s string) (Capability, error) {
	switch c := Capability(s); c {
	case ReadCapability, WriteCapability, DeleteCapability:
		return c, nil
	}
	return "", ErrInvalidCapability
}
