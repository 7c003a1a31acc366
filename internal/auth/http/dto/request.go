// Package dto provides data transfer objects for the token endpoint.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/connectors/internal/validation"
)

// IssueTokenRequest contains the client credentials exchanged for a bearer token.
type IssueTokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"` //nolint:gosec // request field
}

// Validate checks if the issue token request is valid.
func (r *IssueTokenRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ClientID,
			validation.Required,
			customValidation.NotBlank,
			customValidation.NoWhitespace,
			validation.Length(36, 36),
		),
		validation.Field(&r.ClientSecret,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 512),
		),
	)
}
