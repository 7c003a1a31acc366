package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	authDomain "github.com/allisson/connectors/internal/auth/domain"
	"github.com/allisson/connectors/internal/auth/http/dto"
	"github.com/allisson/connectors/internal/auth/http/mocks"
)

func newTokenRouter(tokenUseCase *mocks.MockTokenUseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/v1/token", NewTokenHandler(tokenUseCase, newTestLogger()).IssueTokenHandler)
	return router
}

func postToken(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/token", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestTokenHandler_IssueTokenHandler(t *testing.T) {
	clientID := uuid.Must(uuid.NewV7())

	t.Run("Success", func(t *testing.T) {
		expiresAt := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)
		tokenUseCase := &mocks.MockTokenUseCase{}
		tokenUseCase.On("Issue", mock.Anything, &authDomain.IssueTokenInput{
			ClientID:     clientID,
			ClientSecret: "secret",
		}).Return(&authDomain.IssueTokenOutput{PlainToken: "ctk_plain", ExpiresAt: expiresAt}, nil)

		w := postToken(newTokenRouter(tokenUseCase),
			`{"client_id":"`+clientID.String()+`","client_secret":"secret"}`)

		require.Equal(t, http.StatusCreated, w.Code)
		var response dto.IssueTokenResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "ctk_plain", response.Token)
		assert.Equal(t, "Bearer", response.TokenType)
		assert.True(t, expiresAt.Equal(response.ExpiresAt))
	})

	t.Run("Error_MalformedJSON", func(t *testing.T) {
		w := postToken(newTokenRouter(&mocks.MockTokenUseCase{}), `{`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Error_MissingSecret", func(t *testing.T) {
		w := postToken(newTokenRouter(&mocks.MockTokenUseCase{}), `{"client_id":"`+clientID.String()+`"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Error_InvalidUUID", func(t *testing.T) {
		w := postToken(newTokenRouter(&mocks.MockTokenUseCase{}),
			`{"client_id":"zzzzzzzz-zzzz-zzzz-zzzz-zzzzzzzzzzzz","client_secret":"secret"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	errorCases := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "Error_InvalidCredentials", err: authDomain.ErrInvalidCredentials, expected: http.StatusUnauthorized},
		{name: "Error_Inactive", err: authDomain.ErrClientInactive, expected: http.StatusForbidden},
		{name: "Error_Locked", err: authDomain.ErrClientLocked, expected: http.StatusLocked},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			tokenUseCase := &mocks.MockTokenUseCase{}
			tokenUseCase.On("Issue", mock.Anything, mock.Anything).Return(nil, tc.err)

			w := postToken(newTokenRouter(tokenUseCase),
				`{"client_id":"`+clientID.String()+`","client_secret":"secret"}`)
			assert.Equal(t, tc.expected, w.Code)
		})
	}
}
