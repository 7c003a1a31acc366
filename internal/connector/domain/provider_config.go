package domain

import (
	"sort"
)

// ProviderConfig is the OAuth client configuration of one provider, built once at startup
// and shared read-only afterwards.
type ProviderConfig struct {
	Provider     Provider
	Name         string
	Type         ProviderType
	ClientID     string
	ClientSecret string //nolint:gosec // never serialized or logged
	AuthURL      string
	TokenURL     string
	ProbeURL     string
	Scopes       []string
	RedirectURI  string
}

// Configured reports whether client credentials are present.
func (c *ProviderConfig) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// ProviderRegistry resolves the configuration of a provider.
type ProviderRegistry struct {
	configs map[Provider]ProviderConfig
}

// NewProviderRegistry merges the given overrides onto the built-in provider defaults.
// Empty override fields keep the default value.
func NewProviderRegistry(overrides ...ProviderConfig) *ProviderRegistry {
	configs := make(map[Provider]ProviderConfig, len(providerDefaults))
	for p := range providerDefaults {
		configs[p] = p.DefaultConfig()
	}

	for _, o := range overrides {
		cfg, ok := configs[o.Provider]
		if !ok {
			continue
		}
		cfg.ClientID = o.ClientID
		cfg.ClientSecret = o.ClientSecret
		cfg.RedirectURI = o.RedirectURI
		if o.AuthURL != "" {
			cfg.AuthURL = o.AuthURL
		}
		if o.TokenURL != "" {
			cfg.TokenURL = o.TokenURL
		}
		if o.ProbeURL != "" {
			cfg.ProbeURL = o.ProbeURL
		}
		if len(o.Scopes) > 0 {
			cfg.Scopes = append([]string(nil), o.Scopes...)
		}
		configs[o.Provider] = cfg
	}

	return &ProviderRegistry{configs: configs}
}

// Get returns the configuration of a configured provider.
// Returns ErrUnknownProvider or ErrProviderNotConfigured otherwise.
func (r *ProviderRegistry) Get(p Provider) (*ProviderConfig, error) {
	cfg, ok := r.configs[p]
	if !ok {
		return nil, ErrUnknownProvider
	}
	if !cfg.Configured() {
		return nil, ErrProviderNotConfigured
	}
	return &cfg, nil
}

// Configured returns the configured providers ordered by identifier.
func (r *ProviderRegistry) Configured() []*ProviderConfig {
	out := make([]*ProviderConfig, 0, len(r.configs))
	for _, cfg := range r.configs {
		if cfg.Configured() {
			c := cfg
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Provider < out[j].Provider
	})
	return out
}
