package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	connectorDomain "github.com/allisson/connectors/internal/connector/domain"
)

// DefaultHTTPTimeout bounds every provider call. It must stay well below the OAuth state
// validity window.
const DefaultHTTPTimeout = 15 * time.Second

type oauth2Exchanger struct {
	httpClient *http.Client
}

// NewTokenExchanger creates a TokenExchanger backed by golang.org/x/oauth2.
// A non-positive timeout falls back to DefaultHTTPTimeout.
func NewTokenExchanger(timeout time.Duration) TokenExchanger {
	return &oauth2Exchanger{httpClient: newHTTPClient(timeout)}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &http.Client{Timeout: timeout}
}

func oauth2Config(cfg *connectorDomain.ProviderConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       cfg.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  cfg.AuthURL,
			TokenURL: cfg.TokenURL,
		},
	}
}

func (e *oauth2Exchanger) AuthCodeURL(cfg *connectorDomain.ProviderConfig, state string) string {
	return oauth2Config(cfg).AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func (e *oauth2Exchanger) Exchange(
	ctx context.Context,
	cfg *connectorDomain.ProviderConfig,
	code string,
) (*connectorDomain.Tokens, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)

	token, err := oauth2Config(cfg).Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", connectorDomain.ErrTokenExchangeFailed, describeRetrieveError(err))
	}
	return toTokens(token, ""), nil
}

func (e *oauth2Exchanger) Refresh(
	ctx context.Context,
	cfg *connectorDomain.ProviderConfig,
	refreshToken string,
) (*connectorDomain.Tokens, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)

	// An empty access token forces the token source to run the refresh grant immediately.
	source := oauth2Config(cfg).TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", connectorDomain.ErrRefreshFailed, describeRetrieveError(err))
	}
	return toTokens(token, refreshToken), nil
}

// describeRetrieveError renders a provider error for server-side logs.
func describeRetrieveError(err error) string {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		if retrieveErr.ErrorCode != "" {
			return fmt.Sprintf("status %d: %s %s", status, retrieveErr.ErrorCode, retrieveErr.ErrorDescription)
		}
		return fmt.Sprintf("status %d: %s", status, string(retrieveErr.Body))
	}
	return err.Error()
}

func toTokens(token *oauth2.Token, previousRefreshToken string) *connectorDomain.Tokens {
	tokens := &connectorDomain.Tokens{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
	}
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = previousRefreshToken
	}
	if !token.Expiry.IsZero() {
		expiresAt := token.Expiry.UTC()
		tokens.ExpiresAt = &expiresAt
	}
	if scope, ok := token.Extra("scope").(string); ok {
		tokens.Scope = scope
	}
	return tokens
}
