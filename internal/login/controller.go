package login

import (
	"context"
	"crypto/rand"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"finitefield.org/enquete-web/internal/domain"
	"finitefield.org/enquete-web/internal/observability"
)

var (
	// ErrSubmitIgnored is returned when a submission is rejected by the guard
	// because the form is invalid or a previous submission is still pending.
	ErrSubmitIgnored = errors.New("login: submission ignored")
	// ErrUnmounted is returned when the controller is unmounted before or
	// while the authentication call runs. The result is discarded.
	ErrUnmounted = errors.New("login: controller unmounted")
)

// Validation reports an error message for field, or "" when it is valid.
type Validation interface {
	Validate(field string, values map[string]string) string
}

// Navigator is invoked once authentication succeeds.
type Navigator interface {
	Navigate(ctx context.Context, account domain.AccountModel) error
}

// NavigatorFunc adapts ordinary functions to Navigator.
type NavigatorFunc func(context.Context, domain.AccountModel) error

// Navigate calls f(ctx, account).
func (f NavigatorFunc) Navigate(ctx context.Context, account domain.AccountModel) error {
	return f(ctx, account)
}

// Controller owns the state of one mounted login form.
type Controller struct {
	validation     Validation
	authentication domain.Authentication

	mu        sync.Mutex
	state     FormState
	touched   bool
	failed    bool
	succeeded bool
	unmounted bool
	cancel    context.CancelFunc
}

// NewController mounts a login form. Both error slots are populated by
// validating the empty form.
func NewController(validation Validation, authentication domain.Authentication) *Controller {
	if validation == nil {
		panic("login: validation is required")
	}
	if authentication == nil {
		panic("login: authentication is required")
	}
	c := &Controller{
		validation:     validation,
		authentication: authentication,
	}
	values := c.state.values()
	c.state.EmailError = validation.Validate(FieldEmail, values)
	c.state.PasswordError = validation.Validate(FieldPassword, values)
	c.state.recompute()
	return c
}

// State returns a copy of the current form state.
func (c *Controller) State() FormState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Phase reports where the form is in its lifecycle.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.succeeded:
		return PhaseSucceeded
	case c.state.IsLoading:
		return PhaseSubmitting
	case c.failed:
		return PhaseFailed
	case !c.touched:
		return PhasePristine
	case c.state.IsFormInvalid:
		return PhaseInvalid
	default:
		return PhaseValid
	}
}

// OnFieldChange stores value for field and re-validates that field only.
// Unknown fields are ignored. It reports whether the field was recognised.
func (c *Controller) OnFieldChange(field, value string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch field {
	case FieldEmail:
		c.state.Email = value
	case FieldPassword:
		c.state.Password = value
	default:
		return false
	}

	msg := c.validation.Validate(field, c.state.values())
	if field == FieldEmail {
		c.state.EmailError = msg
	} else {
		c.state.PasswordError = msg
	}
	c.state.recompute()
	c.touched = true
	c.failed = false
	return true
}

// OnSubmit authenticates with the current credentials.
//
// It returns ErrSubmitIgnored when the form is invalid or a submission is
// already in flight, ErrUnmounted when the controller went away, the
// authentication error on failure (also recorded as SubmissionError), or the
// navigator's error after a successful authentication.
func (c *Controller) OnSubmit(ctx context.Context, nav Navigator) error {
	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return ErrUnmounted
	}
	if c.state.IsFormInvalid || c.state.IsLoading {
		c.mu.Unlock()
		return ErrSubmitIgnored
	}
	c.state.IsLoading = true
	c.state.SubmissionError = ""
	c.failed = false
	creds := Credentials{Email: c.state.Email, Password: c.state.Password}
	authCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()
	defer cancel()

	attempt := ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
	logger := observability.FromContext(ctx).With(
		zap.String("attempt_id", attempt),
		zap.String("email", observability.MaskEmail(creds.Email)),
	)
	logger.Info("login submitted")

	account, err := c.authentication.Auth(authCtx, domain.AuthenticationParams{
		Email:    creds.Email,
		Password: creds.Password,
	})

	c.mu.Lock()
	c.cancel = nil
	if c.unmounted {
		c.mu.Unlock()
		logger.Info("login result discarded after unmount")
		return ErrUnmounted
	}
	if err != nil {
		c.state.IsLoading = false
		c.state.SubmissionError = err.Error()
		c.failed = true
		c.mu.Unlock()
		logger.Warn("login failed", zap.Error(err))
		return err
	}
	c.succeeded = true
	c.mu.Unlock()

	logger.Info("login succeeded")
	if nav == nil {
		return nil
	}
	return nav.Navigate(ctx, account)
}

// Unmount cancels any in-flight authentication and discards its result.
func (c *Controller) Unmount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unmounted = true
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Unmounted reports whether Unmount has been called.
func (c *Controller) Unmounted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unmounted
}
