package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"finitefield.org/enquete-web/internal/domain"
	custommw "finitefield.org/enquete-web/internal/httpserver/middleware"
	"finitefield.org/enquete-web/internal/login"
	"finitefield.org/enquete-web/internal/observability"
	"finitefield.org/enquete-web/internal/session"
	"finitefield.org/enquete-web/internal/templates/auth"
	"finitefield.org/enquete-web/internal/templates/home"
)

var formFields = []string{login.FieldEmail, login.FieldPassword}

type loginHandlers struct {
	registry   *login.Registry
	csrfHeader string
	now        func() time.Time
}

// LoginPage mounts a fresh controller for the visitor and renders the page.
func (h *loginHandlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	sess, ok := custommw.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if h.signedIn(sess) {
		http.Redirect(w, r, homePath, http.StatusFound)
		return
	}

	ctrl := h.registry.Mount(sess.ID())
	observability.FromContext(r.Context()).Debug("login form mounted", zap.Int("mounted", h.registry.Len()))
	render(w, r, auth.LoginPage(h.pageData(r, ctrl.State())))
}

// Validate applies one keystroke and answers with the field status plus the
// submit button.
func (h *loginHandlers) Validate(w http.ResponseWriter, r *http.Request) {
	sess, ok := custommw.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	field := strings.TrimSpace(r.PostForm.Get("field"))
	if field == "" {
		field = custommw.HTMXInfoFromContext(r.Context()).TriggerName
	}

	ctrl := h.controllerFor(sess.ID(), r.PostForm)
	if !ctrl.OnFieldChange(field, r.PostForm.Get(field)) {
		http.Error(w, "unknown field", http.StatusBadRequest)
		return
	}
	render(w, r, auth.FieldFeedback(field, h.formData(r, ctrl.State())))
}

// Submit authenticates the visitor with the values held by their controller.
func (h *loginHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	sess, ok := custommw.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	logger := observability.FromContext(r.Context())

	ctrl := h.controllerFor(sess.ID(), r.PostForm)
	h.syncFields(ctrl, r.PostForm)

	nav := login.NavigatorFunc(func(ctx context.Context, account domain.AccountModel) error {
		sess.SetAccount(&session.Account{
			Name:        account.Name,
			AccessToken: account.AccessToken,
			ExpiresAt:   tokenExpiry(account.AccessToken),
		})
		return nil
	})

	err := ctrl.OnSubmit(r.Context(), nav)
	switch {
	case err == nil:
		h.registry.Unmount(sess.ID())
		custommw.Redirect(w, r, homePath)
	case errors.Is(err, login.ErrUnmounted):
		logger.Info("submission for unmounted login form")
		custommw.Redirect(w, r, loginPath)
	case errors.Is(err, login.ErrSubmitIgnored):
		logger.Debug("submission ignored", zap.String("phase", string(ctrl.Phase())))
		h.renderForm(w, r, ctrl.State())
	default:
		// The password input is rendered empty, so the held value goes too.
		ctrl.OnFieldChange(login.FieldPassword, "")
		h.renderForm(w, r, ctrl.State())
	}
}

// Logout clears the account and the mounted form.
func (h *loginHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := custommw.SessionFromContext(r.Context()); ok {
		h.registry.Unmount(sess.ID())
		sess.Destroy()
	}
	custommw.Redirect(w, r, loginPath)
}

// Home renders the landing page for a signed-in account.
func (h *loginHandlers) Home(w http.ResponseWriter, r *http.Request) {
	loc := custommw.LocalizerFromContext(r.Context())
	greeting := loc.T("home.welcome")
	if account, ok := custommw.AccountFromContext(r.Context()); ok && account.Name != "" {
		greeting = loc.Tf("home.greeting", account.Name)
	}
	render(w, r, home.Page(home.PageData{
		Lang:        loc.Lang(),
		AppName:     loc.T("app.name"),
		Title:       loc.T("home.title"),
		Greeting:    greeting,
		LogoutLabel: loc.T("home.logout"),
		LogoutPath:  logoutPath,
		CSRFToken:   custommw.CSRFTokenFromContext(r.Context()),
		CSRFHeader:  h.csrfHeader,
	}))
}

// controllerFor returns the controller mounted for id. A missing one (pruned
// or lost on restart) is remounted and replayed from the posted values.
func (h *loginHandlers) controllerFor(id string, form url.Values) *login.Controller {
	if ctrl, ok := h.registry.Get(id); ok && !ctrl.Unmounted() {
		return ctrl
	}
	ctrl := h.registry.Mount(id)
	for _, field := range formFields {
		if values, ok := form[field]; ok && len(values) > 0 {
			ctrl.OnFieldChange(field, values[0])
		}
	}
	return ctrl
}

// syncFields applies posted values that the controller has not seen, which
// happens when the form is submitted without htmx or before the last
// keystroke request fired.
func (h *loginHandlers) syncFields(ctrl *login.Controller, form url.Values) {
	state := ctrl.State()
	for _, field := range formFields {
		values, ok := form[field]
		if !ok || len(values) == 0 {
			continue
		}
		if values[0] != state.FieldValue(field) {
			ctrl.OnFieldChange(field, values[0])
		}
	}
}

func (h *loginHandlers) signedIn(sess *session.Session) bool {
	account := sess.Account()
	if account == nil || account.AccessToken == "" {
		return false
	}
	return account.ExpiresAt.IsZero() || h.now().Before(account.ExpiresAt)
}

func (h *loginHandlers) renderForm(w http.ResponseWriter, r *http.Request, state login.FormState) {
	if custommw.IsHTMXRequest(r.Context()) {
		render(w, r, auth.LoginForm(h.formData(r, state)))
		return
	}
	render(w, r, auth.LoginPage(h.pageData(r, state)))
}

func (h *loginHandlers) formData(r *http.Request, state login.FormState) auth.FormData {
	return auth.FormData{
		State:     state,
		Labels:    auth.LabelsFor(custommw.LocalizerFromContext(r.Context())),
		CSRFToken: custommw.CSRFTokenFromContext(r.Context()),
	}
}

func (h *loginHandlers) pageData(r *http.Request, state login.FormState) auth.LoginPageData {
	return auth.LoginPageData{
		Lang:       custommw.LocalizerFromContext(r.Context()).Lang(),
		CSRFHeader: h.csrfHeader,
		Form:       h.formData(r, state),
	}
}

func render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	templ.Handler(c).ServeHTTP(w, r)
}

// tokenExpiry reads the exp claim of a JWT access token without verifying it.
// Opaque tokens yield the zero time.
func tokenExpiry(token string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
