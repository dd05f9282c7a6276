package domain

import (
	"context"
	"errors"
)

// AccountModel is the account returned by the authentication backend.
type AccountModel struct {
	AccessToken string `json:"accessToken"`
	Name        string `json:"name,omitempty"`
}

// AuthenticationParams carries the credentials submitted by the login form.
type AuthenticationParams struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Authentication exchanges credentials for an account.
type Authentication interface {
	Auth(ctx context.Context, params AuthenticationParams) (AccountModel, error)
}

// AuthenticationFunc adapts ordinary functions to Authentication.
type AuthenticationFunc func(context.Context, AuthenticationParams) (AccountModel, error)

// Auth calls f(ctx, params).
func (f AuthenticationFunc) Auth(ctx context.Context, params AuthenticationParams) (AccountModel, error) {
	return f(ctx, params)
}

// Error messages are rendered verbatim on the login page.
var (
	// ErrInvalidCredentials is returned when the backend rejects the credentials.
	ErrInvalidCredentials = errors.New("Credenciais inválidas")
	// ErrUnexpected covers transport failures and unexpected backend responses.
	ErrUnexpected = errors.New("Algo de errado aconteceu. Tente novamente em breve.")
)
