package routes

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/render"
	"golang.org/x/crypto/bcrypt"

	"github.com/mbolis/survey-intake/app"
	"github.com/mbolis/survey-intake/database"
	"github.com/mbolis/survey-intake/httpx"
	"github.com/mbolis/survey-intake/log"
)

var reRefresh = regexp.MustCompile(`(?i)^refresh\s+(.*)`)

func Signup(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || strings.TrimSpace(user) == "" || pass == "" {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "signup.basic_auth")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
		if err != nil {
			httpx.LogInternalError(w, "signup.hash_password", err)
			return
		}

		acc, err := app.CreateAccount(r.Context(), user, hash)
		if errors.Is(err, database.ErrConflict) {
			httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, "db.insert_account.conflict")
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.insert_account", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id":         acc.ID,
			"webhook_id": acc.WebhookID,
		})
	}
}

func Login(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "login.basic_auth")
			return
		}

		app.UserCredentials(w, tokenRequest(r, url.Values{
			"grant_type": {"password"},
			"username":   {user},
			"password":   {pass},
		}))
	}
}

func Refresh(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		match := reRefresh.FindStringSubmatch(r.Header.Get("authorization"))
		if len(match) == 0 {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "refresh.token")
			return
		}

		app.UserCredentials(w, tokenRequest(r, url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {match[1]},
		}))
	}
}

// tokenRequest rewrites r as the form post the bearer server expects.
func tokenRequest(r *http.Request, form url.Values) *http.Request {
	body := form.Encode()
	req := r.Clone(r.Context())
	req.Header.Del("authorization")
	req.Header.Set("content-type", "application/x-www-form-urlencoded")
	req.Header.Set("content-length", strconv.Itoa(len(body)))
	req.Body = io.NopCloser(strings.NewReader(body))
	req.ContentLength = int64(len(body))
	req.Form = nil
	req.PostForm = nil
	return req
}
