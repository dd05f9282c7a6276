package remoteauth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"finitefield.org/enquete-web/internal/domain"
	"finitefield.org/enquete-web/internal/observability"
)

const (
	loginEndpoint   = "login"
	tracerName      = "finitefield.org/enquete-web/internal/remoteauth"
	maxErrorPayload = 1 << 16
)

// HTTPClient matches the subset of http.Client used by HTTPAuthentication.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// HTTPAuthentication implements domain.Authentication against the accounts API.
type HTTPAuthentication struct {
	base   *url.URL
	client HTTPClient
	policy *bluemonday.Policy
}

// New constructs an HTTPAuthentication posting credentials to <baseURL>/login.
func New(baseURL string, client HTTPClient) (*HTTPAuthentication, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("remoteauth: base URL is required")
	}
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("remoteauth: parse base URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("remoteauth: base URL %q must be absolute", baseURL)
	}
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPAuthentication{
		base:   parsed,
		client: client,
		policy: bluemonday.StrictPolicy(),
	}, nil
}

// Auth exchanges the credentials for an account.
//
// A 401 answer yields domain.ErrInvalidCredentials. Every other failure,
// transport errors included, yields domain.ErrUnexpected; the underlying cause
// is only logged.
func (a *HTTPAuthentication) Auth(ctx context.Context, params domain.AuthenticationParams) (domain.AccountModel, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "remoteauth.Auth")
	defer span.End()

	logger := observability.FromContext(ctx).With(zap.String("email", observability.MaskEmail(params.Email)))

	req, err := a.newJSONRequest(ctx, http.MethodPost, loginEndpoint, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build request")
		logger.Error("auth request could not be built", zap.Error(err))
		return domain.AccountModel{}, domain.ErrUnexpected
	}

	resp, err := a.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		if ctx.Err() != nil {
			logger.Info("auth request cancelled", zap.Error(err))
		} else {
			logger.Error("auth request failed", zap.Error(err))
		}
		return domain.AccountModel{}, domain.ErrUnexpected
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	switch resp.StatusCode {
	case http.StatusOK:
		var account domain.AccountModel
		if err := json.NewDecoder(resp.Body).Decode(&account); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "decode")
			logger.Error("auth response could not be decoded", zap.Error(err))
			return domain.AccountModel{}, domain.ErrUnexpected
		}
		if strings.TrimSpace(account.AccessToken) == "" {
			span.SetStatus(codes.Error, "empty token")
			logger.Error("auth response carried no access token")
			return domain.AccountModel{}, domain.ErrUnexpected
		}
		return account, nil
	case http.StatusUnauthorized:
		logger.Info("auth rejected credentials", zap.String("backend_message", a.errorMessage(resp)))
		return domain.AccountModel{}, domain.ErrInvalidCredentials
	default:
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
		logger.Error("auth backend error",
			zap.Int("status", resp.StatusCode),
			zap.String("backend_message", a.errorMessage(resp)),
		)
		return domain.AccountModel{}, domain.ErrUnexpected
	}
}

func (a *HTTPAuthentication) newJSONRequest(ctx context.Context, method, endpoint string, payload any) (*http.Request, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, fmt.Errorf("remoteauth: encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.resolve(endpoint), &buf)
	if err != nil {
		return nil, fmt.Errorf("remoteauth: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (a *HTTPAuthentication) resolve(endpoint string) string {
	ref := &url.URL{Path: strings.TrimPrefix(endpoint, "/")}
	return a.base.ResolveReference(ref).String()
}

// errorMessage extracts a loggable message from a failed response. Markup is
// stripped so backend HTML error pages do not end up in the logs.
func (a *HTTPAuthentication) errorMessage(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorPayload))
	if len(body) == 0 {
		return http.StatusText(resp.StatusCode)
	}

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Error != "":
			return a.clean(payload.Error)
		case payload.Message != "":
			return a.clean(payload.Message)
		}
	}
	return a.clean(string(body))
}

func (a *HTTPAuthentication) clean(s string) string {
	return strings.Join(strings.Fields(a.policy.Sanitize(s)), " ")
}
