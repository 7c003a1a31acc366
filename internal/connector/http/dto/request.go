// Package dto provides data transfer objects for the connector HTTP endpoints.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/connectors/internal/validation"
)

// Upper bounds of the callback query parameters. Providers stay far below them.
const (
	maxCodeLength          = 4096
	maxStateLength         = 1024
	maxProviderErrorLength = 512
)

// CallbackRequest holds the query parameters the provider redirects back with.
type CallbackRequest struct {
	Code  string `form:"code"`
	State string `form:"state"`
	Error string `form:"error"`
}

// Validate bounds the parameter sizes and character set. Presence is checked by the lifecycle so each
// missing value maps to its own callback reason.
func (r *CallbackRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Code, validation.Length(0, maxCodeLength), customValidation.PrintableASCII),
		validation.Field(&r.State, validation.Length(0, maxStateLength), customValidation.PrintableASCII),
		validation.Field(&r.Error,
			validation.Length(0, maxProviderErrorLength),
			customValidation.PrintableASCII,
		),
	)
}
