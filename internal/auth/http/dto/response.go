package dto

import (
	"time"

	authDomain "github.com/allisson/connectors/internal/auth/domain"
)

// IssueTokenResponse carries the plain bearer token. It is shown exactly once.
type IssueTokenResponse struct {
	Token     string    `json:"token"` //nolint:gosec // returned once on issue
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MapIssueTokenOutputToResponse maps an issued token to its response.
func MapIssueTokenOutputToResponse(output *authDomain.IssueTokenOutput) IssueTokenResponse {
	return IssueTokenResponse{
		Token:     output.PlainToken,
		TokenType: "Bearer",
		ExpiresAt: output.ExpiresAt,
	}
}
