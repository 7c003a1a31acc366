package dto

import (
	"time"

	connectorDomain "github.com/allisson/connectors/internal/connector/domain"
)

// AuthorizeResponse is returned when an authorization flow starts.
type AuthorizeResponse struct {
	AuthURL  string `json:"auth_url"`
	Provider string `json:"provider"`
	Nonce    string `json:"nonce"`
}

// MapAuthorizationToResponse converts an authorization request to an API response.
func MapAuthorizationToResponse(request *connectorDomain.AuthorizationRequest) AuthorizeResponse {
	return AuthorizeResponse{
		AuthURL:  request.AuthURL,
		Provider: request.Provider.String(),
		Nonce:    request.Nonce,
	}
}

// ConnectorResponse describes one configured provider for the tenant.
type ConnectorResponse struct {
	Provider   string     `json:"provider"`
	Name       string     `json:"name"`
	Type       string     `json:"type"`
	Connected  bool       `json:"connected"`
	LastTested *time.Time `json:"last_tested,omitempty"`
	Error      *string    `json:"error,omitempty"`
}

// ListConnectorsResponse is the connector status listing.
type ListConnectorsResponse struct {
	Data []ConnectorResponse `json:"data"`
}

// MapStatusesToListResponse converts connector statuses to a list API response.
func MapStatusesToListResponse(statuses []*connectorDomain.ConnectorStatus) ListConnectorsResponse {
	connectors := make([]ConnectorResponse, 0, len(statuses))
	for _, status := range statuses {
		connectors = append(connectors, ConnectorResponse{
			Provider:   status.Provider.String(),
			Name:       status.Name,
			Type:       string(status.Type),
			Connected:  status.Connected,
			LastTested: status.LastTested,
			Error:      status.Error,
		})
	}
	return ListConnectorsResponse{Data: connectors}
}

// TestConnectionResponse is the outcome of a connection test.
type TestConnectionResponse struct {
	Success   bool      `json:"success"`
	Provider  string    `json:"provider"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// MapTestResultToResponse converts a test result to an API response.
func MapTestResultToResponse(result *connectorDomain.TestResult) TestConnectionResponse {
	return TestConnectionResponse{
		Success:   result.Success,
		Provider:  result.Provider.String(),
		Error:     result.Error,
		Timestamp: result.Timestamp,
	}
}

// DisconnectResponse confirms a disconnection.
type DisconnectResponse struct {
	Success  bool   `json:"success"`
	Provider string `json:"provider"`
	Message  string `json:"message"`
}
