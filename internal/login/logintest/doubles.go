// Package logintest provides test doubles for the login form collaborators.
package logintest

import (
	"context"
	"sync"

	"finitefield.org/enquete-web/internal/domain"
)

// ValidationStub returns ErrorMessage for every field and records the last call.
type ValidationStub struct {
	mu           sync.Mutex
	ErrorMessage string
	fieldName    string
	calls        int
}

// Validate implements login.Validation.
func (s *ValidationStub) Validate(field string, _ map[string]string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fieldName = field
	s.calls++
	return s.ErrorMessage
}

// SetErrorMessage changes the canned message returned by subsequent calls.
func (s *ValidationStub) SetErrorMessage(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ErrorMessage = msg
}

// FieldName returns the field passed to the most recent call.
func (s *ValidationStub) FieldName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fieldName
}

// Calls returns how many times Validate ran.
func (s *ValidationStub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// AuthenticationSpy records the params it was called with and returns Account or Err.
// When Release is non-nil the call blocks until it is closed or the context ends,
// which lets tests observe the pending state.
type AuthenticationSpy struct {
	Account domain.AccountModel
	Err     error
	Release chan struct{}
	// Started receives one value per call once the params are recorded.
	Started chan struct{}

	mu     sync.Mutex
	params domain.AuthenticationParams
	calls  int
}

// NewAuthenticationSpy returns a spy resolving with a fixed access token.
func NewAuthenticationSpy() *AuthenticationSpy {
	return &AuthenticationSpy{
		Account: domain.AccountModel{AccessToken: "any_token", Name: "any_name"},
	}
}

// Auth implements domain.Authentication.
func (s *AuthenticationSpy) Auth(ctx context.Context, params domain.AuthenticationParams) (domain.AccountModel, error) {
	s.mu.Lock()
	s.params = params
	s.calls++
	s.mu.Unlock()

	if s.Started != nil {
		s.Started <- struct{}{}
	}
	if s.Release != nil {
		select {
		case <-s.Release:
		case <-ctx.Done():
			return domain.AccountModel{}, ctx.Err()
		}
	}
	if s.Err != nil {
		return domain.AccountModel{}, s.Err
	}
	return s.Account, nil
}

// Params returns the params of the most recent call.
func (s *AuthenticationSpy) Params() domain.AuthenticationParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// CallsCount returns how many times Auth ran.
func (s *AuthenticationSpy) CallsCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
