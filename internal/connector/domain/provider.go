// Package domain defines the connector models: the closed set of OAuth providers, their
// client configuration, and the per-tenant credentials obtained from them.
package domain

import (
	"sort"
)

// Provider identifies a third-party OAuth provider.
type Provider string

// Supported providers.
const (
	ProviderGoogleCalendar Provider = "google_calendar"
	ProviderSalesforce     Provider = "salesforce"
	ProviderHubSpot        Provider = "hubspot"
	ProviderPipedrive      Provider = "pipedrive"
)

// ProviderType groups providers by the capability they offer.
type ProviderType string

const (
	ProviderTypeCalendar ProviderType = "calendar"
	ProviderTypeCRM      ProviderType = "crm"
)

// providerDefaults holds the built-in metadata and endpoints of every provider.
var providerDefaults = map[Provider]ProviderConfig{
	ProviderGoogleCalendar: {
		Provider: ProviderGoogleCalendar,
		Name:     "Google Calendar",
		Type:     ProviderTypeCalendar,
		AuthURL:  "https://accounts.google.com/o/oauth2/v2/auth",
		TokenURL: "https://oauth2.googleapis.com/token",
		ProbeURL: "https://www.googleapis.com/calendar/v3/users/me/calendarList?maxResults=1",
		Scopes: []string{
			"https://www.googleapis.com/auth/calendar",
			"https://www.googleapis.com/auth/calendar.events",
		},
	},
	ProviderSalesforce: {
		Provider: ProviderSalesforce,
		Name:     "Salesforce",
		Type:     ProviderTypeCRM,
		AuthURL:  "https://login.salesforce.com/services/oauth2/authorize",
		TokenURL: "https://login.salesforce.com/services/oauth2/token",
		ProbeURL: "https://login.salesforce.com/services/oauth2/userinfo",
		Scopes:   []string{"api", "refresh_token"},
	},
	ProviderHubSpot: {
		Provider: ProviderHubSpot,
		Name:     "HubSpot",
		Type:     ProviderTypeCRM,
		AuthURL:  "https://app.hubspot.com/oauth/authorize",
		TokenURL: "https://api.hubapi.com/oauth/v1/token",
		ProbeURL: "https://api.hubapi.com/crm/v3/objects/contacts?limit=1",
		Scopes:   []string{"crm.objects.contacts.read", "crm.objects.contacts.write"},
	},
	ProviderPipedrive: {
		Provider: ProviderPipedrive,
		Name:     "Pipedrive",
		Type:     ProviderTypeCRM,
		AuthURL:  "https://oauth.pipedrive.com/oauth/authorize",
		TokenURL: "https://oauth.pipedrive.com/oauth/token",
		ProbeURL: "https://api.pipedrive.com/v1/users/me",
		Scopes:   []string{"base", "contacts:full"},
	},
}

// AllProviders returns every supported provider in a stable order.
func AllProviders() []Provider {
	providers := make([]Provider, 0, len(providerDefaults))
	for p := range providerDefaults {
		providers = append(providers, p)
	}
	sort.Slice(providers, func(i, j int) bool {
		return providers[i] < providers[j]
	})
	return providers
}

// ParseProvider converts a URL or storage value into a Provider.
func ParseProvider(value string) (Provider, error) {
	p := Provider(value)
	if _, ok := providerDefaults[p]; !ok {
		return "", ErrUnknownProvider
	}
	return p, nil
}

// String returns the provider identifier.
func (p Provider) String() string {
	return string(p)
}

// DefaultConfig returns the built-in configuration of the provider without client credentials.
func (p Provider) DefaultConfig() ProviderConfig {
	cfg := providerDefaults[p]
	cfg.Scopes = append([]string(nil), cfg.Scopes...)
	return cfg
}
