package httpserver_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"finitefield.org/enquete-web/internal/domain"
	"finitefield.org/enquete-web/internal/login/logintest"
	"finitefield.org/enquete-web/internal/testutil"
)

const validationError = "any validation error"

func credentials(email, password string) url.Values {
	return url.Values{"email": {email}, "password": {password}}
}

func TestLoginPageInitialState(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t, testutil.WithValidation(&logintest.ValidationStub{ErrorMessage: validationError}))

	resp, body := ts.Get(t, "/login")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	require.Equal(t, "pt-BR", resp.Header.Get("Content-Language"))

	doc := testutil.ParseHTML(t, body)
	require.Equal(t, "4dev Enquete para Programadores", testutil.ByTestID(doc, "login-header").Find("h1").Text())
	require.Equal(t, 0, testutil.ByTestID(doc, "error-warp").Children().Length())
	require.True(t, testutil.Disabled(testutil.ByTestID(doc, "submit")))

	for _, id := range []string{"email-status", "password-status"} {
		status := testutil.ByTestID(doc, id)
		require.Equal(t, validationError, status.AttrOr("title", ""))
		require.Equal(t, " 🔴 ", status.Text())
	}
	require.NotEmpty(t, ts.CSRFToken(t))
}

func TestSubmitShowsIndicatorForTheSubmittingRequest(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)

	_, body := ts.Get(t, "/login")
	doc := testutil.ParseHTML(t, body)
	form := testutil.ByTestID(doc, "form")
	indicator := form.AttrOr("hx-indicator", "")
	require.Equal(t, "#error-warp", indicator)
	require.Equal(t, 1, doc.Find(indicator).Length())
	require.Equal(t, 0, doc.Find(indicator).Children().Length())

	resp, css := ts.Get(t, "/static/login.css")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(css), ".error-warp.htmx-request::before")
}

func TestValidateShowsFieldError(t *testing.T) {
	t.Parallel()

	stub := &logintest.ValidationStub{ErrorMessage: validationError}
	ts := testutil.NewServer(t, testutil.WithValidation(stub))
	ts.Get(t, "/login")

	for _, field := range []string{"email", "password"} {
		form := credentials("foo@bar.com", "")
		form.Set("field", field)
		resp, body := ts.PostHTMX(t, "/login/validate", form)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, field, stub.FieldName())

		doc := testutil.ParseHTML(t, body)
		status := testutil.ByTestID(doc, field+"-status")
		require.Equal(t, validationError, status.AttrOr("title", ""))
		require.Equal(t, " 🔴 ", status.Text())
		require.True(t, testutil.Disabled(testutil.ByTestID(doc, "submit")))
	}
}

func TestValidateEnablesSubmitWhenBothFieldsPass(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	ts.Get(t, "/login")

	form := credentials("foo@bar.com", "abc123")
	form.Set("field", "email")
	_, body := ts.PostHTMX(t, "/login/validate", form)
	doc := testutil.ParseHTML(t, body)

	status := testutil.ByTestID(doc, "email-status")
	require.Equal(t, "Tudo certo!", status.AttrOr("title", ""))
	require.Equal(t, " 🟢 ", status.Text())

	form.Set("field", "password")
	_, body = ts.PostHTMX(t, "/login/validate", form)
	doc = testutil.ParseHTML(t, body)

	require.Equal(t, " 🟢 ", testutil.ByTestID(doc, "password-status").Text())
	submit := testutil.ByTestID(doc, "submit")
	require.False(t, testutil.Disabled(submit))
	require.Equal(t, "true", submit.AttrOr("hx-swap-oob", ""))
}

func TestValidateRejectsUnknownField(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	ts.Get(t, "/login")

	form := credentials("foo@bar.com", "abc123")
	form.Set("field", "username")
	resp, _ := ts.PostHTMX(t, "/login/validate", form)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubmitCallsAuthenticationWithCorrectValues(t *testing.T) {
	t.Parallel()

	spy := logintest.NewAuthenticationSpy()
	ts := testutil.NewServer(t, testutil.WithAuthentication(spy))
	ts.Get(t, "/login")

	form := credentials("foo@bar.com", "abc123")
	for _, field := range []string{"email", "password"} {
		form.Set("field", field)
		ts.PostHTMX(t, "/login/validate", form)
	}

	resp, _ := ts.PostHTMX(t, "/login", credentials("foo@bar.com", "abc123"))
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get("HX-Redirect"))
	require.Equal(t, 1, spy.CallsCount())
	require.Equal(t, domain.AuthenticationParams{Email: "foo@bar.com", Password: "abc123"}, spy.Params())
	require.Equal(t, 0, ts.Registry.Len(), "successful login unmounts the form")

	resp, body := ts.Get(t, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := testutil.ParseHTML(t, body)
	require.Equal(t, "Olá, any_name", testutil.ByTestID(doc, "greeting").Text())

	resp, _ = ts.Get(t, "/login")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get("Location"))
}

func TestSubmitWhileInvalidNeverCallsAuthentication(t *testing.T) {
	t.Parallel()

	spy := logintest.NewAuthenticationSpy()
	ts := testutil.NewServer(t,
		testutil.WithValidation(&logintest.ValidationStub{ErrorMessage: validationError}),
		testutil.WithAuthentication(spy),
	)
	ts.Get(t, "/login")

	resp, body := ts.PostHTMX(t, "/login", credentials("foo@bar.com", "abc123"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 0, spy.CallsCount())

	doc := testutil.ParseHTML(t, body)
	require.True(t, testutil.Disabled(testutil.ByTestID(doc, "submit")))
	require.Equal(t, 0, testutil.ByTestID(doc, "error-warp").Children().Length())
}

func TestSubmitFailureShowsMainError(t *testing.T) {
	t.Parallel()

	spy := logintest.NewAuthenticationSpy()
	spy.Err = domain.ErrInvalidCredentials
	ts := testutil.NewServer(t, testutil.WithAuthentication(spy))
	ts.Get(t, "/login")

	resp, body := ts.PostHTMX(t, "/login", credentials("foo@bar.com", "abc123"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, resp.Header.Get("HX-Redirect"))

	doc := testutil.ParseHTML(t, body)
	require.Equal(t, "Credenciais inválidas", testutil.ByTestID(doc, "main-error").Text())
	require.Equal(t, 0, testutil.ByTestID(doc, "spinner").Length())
	require.False(t, testutil.Disabled(testutil.ByTestID(doc, "submit")), "the user may retry")
	require.Equal(t, "foo@bar.com", testutil.ByTestID(doc, "email").AttrOr("value", ""))
	require.Equal(t, "", testutil.ByTestID(doc, "password").AttrOr("value", ""))
	require.NotContains(t, string(body), "abc123")

	resp, _ = ts.Get(t, "/")
	require.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestSpinnerShownWhileAuthenticationPending(t *testing.T) {
	t.Parallel()

	spy := logintest.NewAuthenticationSpy()
	spy.Release = make(chan struct{})
	spy.Started = make(chan struct{}, 1)
	ts := testutil.NewServer(t, testutil.WithAuthentication(spy))
	ts.Get(t, "/login")

	token := ts.CSRFToken(t)
	first := make(chan *http.Response, 1)
	go func() {
		req, err := http.NewRequest(http.MethodPost, ts.URL+"/login", strings.NewReader(credentials("foo@bar.com", "abc123").Encode()))
		if err != nil {
			first <- nil
			return
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("HX-Request", "true")
		req.Header.Set(testutil.CSRFHeaderName, token)
		resp, err := ts.Client.Do(req)
		if err != nil {
			first <- nil
			return
		}
		resp.Body.Close()
		first <- resp
	}()

	select {
	case <-spy.Started:
	case <-time.After(5 * time.Second):
		t.Fatal("authentication was not called")
	}

	resp, body := ts.PostHTMX(t, "/login", credentials("foo@bar.com", "abc123"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := testutil.ParseHTML(t, body)
	require.Equal(t, 1, testutil.ByTestID(doc, "error-warp").Find(`[data-testid="spinner"]`).Length())
	require.True(t, testutil.Disabled(testutil.ByTestID(doc, "submit")))

	close(spy.Release)
	select {
	case r := <-first:
		require.NotNil(t, r)
		require.Equal(t, "/", r.Header.Get("HX-Redirect"))
	case <-time.After(5 * time.Second):
		t.Fatal("first submission did not complete")
	}
	require.Equal(t, 1, spy.CallsCount())
}

func TestSubmitWithoutJavaScript(t *testing.T) {
	t.Parallel()

	spy := logintest.NewAuthenticationSpy()
	ts := testutil.NewServer(t, testutil.WithAuthentication(spy))
	ts.Get(t, "/login")

	resp, _ := ts.PostForm(t, "/login", credentials("foo@bar.com", "abc123"))
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get("Location"))
	require.Equal(t, domain.AuthenticationParams{Email: "foo@bar.com", Password: "abc123"}, spy.Params())
}

func TestPrunedFormIsRehydratedFromPostedValues(t *testing.T) {
	t.Parallel()

	spy := logintest.NewAuthenticationSpy()
	ts := testutil.NewServer(t, testutil.WithAuthentication(spy))
	ts.Get(t, "/login")
	require.Equal(t, 1, ts.Registry.Len())

	ts.Registry.Prune(-time.Hour)
	require.Equal(t, 0, ts.Registry.Len())

	form := credentials("foo@bar.com", "abc123")
	form.Set("field", "password")
	_, body := ts.PostHTMX(t, "/login/validate", form)
	doc := testutil.ParseHTML(t, body)
	require.False(t, testutil.Disabled(testutil.ByTestID(doc, "submit")))

	resp, _ := ts.PostHTMX(t, "/login", credentials("foo@bar.com", "abc123"))
	require.Equal(t, "/", resp.Header.Get("HX-Redirect"))
	require.Equal(t, 1, spy.CallsCount())
}

func TestLogoutClearsAccount(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	ts.Get(t, "/login")
	resp, _ := ts.PostHTMX(t, "/login", credentials("foo@bar.com", "abc123"))
	require.Equal(t, "/", resp.Header.Get("HX-Redirect"))

	resp, _ = ts.PostForm(t, "/logout", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/login", resp.Header.Get("Location"))

	resp, _ = ts.Get(t, "/")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestUnsafeRequestsRequireCSRFToken(t *testing.T) {
	t.Parallel()

	spy := logintest.NewAuthenticationSpy()
	ts := testutil.NewServer(t, testutil.WithAuthentication(spy))
	ts.Get(t, "/login")

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/login", strings.NewReader(credentials("foo@bar.com", "abc123").Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := ts.Client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, 0, spy.CallsCount())
}

func TestLocaleFollowsAcceptLanguage(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/login", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	resp, err := ts.Client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, "en", resp.Header.Get("Content-Language"))
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	resp, body := ts.Get(t, "/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", string(body))
}

func TestStaticLogoIsServed(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	resp, body := ts.Get(t, "/static/logo.svg")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "<svg")
}
