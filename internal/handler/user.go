package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/roamstay/internal/auth"
	"github.com/dukerupert/roamstay/internal/email"
	"github.com/dukerupert/roamstay/internal/middleware"
	"github.com/dukerupert/roamstay/internal/model"
	"github.com/dukerupert/roamstay/internal/session"
	"github.com/dukerupert/roamstay/internal/store"
	"github.com/dukerupert/roamstay/internal/view"
)

const (
	afterLoginPath  = "/listings"
	afterLogoutPath = "/users/login"
)

type UserHandler struct {
	users  store.Users
	auth   *auth.Authenticator
	email  *email.Client
	views  *view.Renderer
	logger *slog.Logger
}

func NewUserHandler(users store.Users, a *auth.Authenticator, ec *email.Client, views *view.Renderer, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, auth: a, email: ec, views: views, logger: logger}
}

type registerForm struct {
	Username string `validate:"required,min=3,max=32,username"`
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,min=8,max=72"`
}

func (h *UserHandler) RegisterPage(w http.ResponseWriter, r *http.Request) error {
	h.views.Render(w, r, http.StatusOK, "users/register.html", "Sign up", nil)
	return nil
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) error {
	form := registerForm{
		Username: strings.TrimSpace(r.FormValue("username")),
		Email:    strings.ToLower(strings.TrimSpace(r.FormValue("email"))),
		Password: r.FormValue("password"),
	}
	if err := validate.Struct(form); err != nil {
		flash(r, "error", validationMessage(err))
		redirect(w, r, "/users/register")
		return nil
	}

	taken, err := h.taken(r.Context(), form.Username, form.Email)
	if err != nil {
		return err
	}
	if taken {
		flash(r, "error", "A user with that username or email already exists.")
		redirect(w, r, "/users/register")
		return nil
	}

	hash, err := auth.HashPassword(form.Password)
	if err != nil {
		return err
	}
	user, err := h.users.Create(r.Context(), form.Username, form.Email, hash)
	if errors.Is(err, model.ErrDuplicate) {
		flash(r, "error", "A user with that username or email already exists.")
		redirect(w, r, "/users/register")
		return nil
	}
	if err != nil {
		return err
	}

	if err := h.auth.Login(r, user); err != nil {
		return err
	}
	h.sendWelcome(r.Context(), user)

	flash(r, "success", "Welcome to Roamstay!")
	redirect(w, r, afterLoginPath)
	return nil
}

func (h *UserHandler) taken(ctx context.Context, username, addr string) (bool, error) {
	u, err := h.users.GetByUsername(ctx, username)
	if err != nil || u != nil {
		return u != nil, err
	}
	u, err = h.users.GetByEmail(ctx, addr)
	return u != nil, err
}

func (h *UserHandler) sendWelcome(ctx context.Context, u *model.User) {
	if h.email == nil || !h.email.Configured() {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	go func() {
		defer cancel()
		if err := h.email.SendWelcome(ctx, u.Email, u.Username); err != nil {
			h.logger.Error("send welcome email", "user_id", u.ID, "error", err)
		}
	}()
}

func (h *UserHandler) LoginPage(w http.ResponseWriter, r *http.Request) error {
	h.views.Render(w, r, http.StatusOK, "users/login.html", "Log in", nil)
	return nil
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) error {
	creds := auth.Credentials{
		Username: strings.TrimSpace(r.FormValue("username")),
		Password: r.FormValue("password"),
	}
	user, err := h.auth.Authenticate(r.Context(), creds)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		flash(r, "error", "Invalid username or password.")
		redirect(w, r, "/users/login")
		return nil
	}
	if err != nil {
		return err
	}

	to := afterLoginPath
	if sess := session.FromContext(r.Context()); sess != nil {
		if rt := sess.Pop(middleware.ReturnToKey); isValidRedirect(rt) {
			to = rt
		}
	}
	if err := h.auth.Login(r, user); err != nil {
		return err
	}

	flash(r, "success", "Welcome back, "+user.Username+"!")
	redirect(w, r, to)
	return nil
}

func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) error {
	if err := h.auth.Logout(r); err != nil {
		return err
	}
	flash(r, "success", "You are logged out.")
	redirect(w, r, afterLogoutPath)
	return nil
}
