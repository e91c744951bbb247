package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/iheejigoro/apiserver/internal/services"
	"github.com/iheejigoro/apiserver/internal/store"
	"github.com/iheejigoro/apiserver/types"
)

// UserService is the subset of *services.UserService the handlers use.
type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (types.User, error)
	Login(ctx context.Context, in services.LoginInput) (services.LoginResult, error)
	GetByID(ctx context.Context, id string) (types.User, error)
	UpdateProfile(ctx context.Context, actorID, targetID string, in services.ProfileUpdate) (types.User, error)
}

// UserHandler provides registration, login and profile endpoints.
type UserHandler struct {
	users  UserService
	logger *slog.Logger
}

func NewUserHandler(users UserService, logger *slog.Logger) *UserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserHandler{users: users, logger: logger}
}

// UserRouter registers user routes on the given router.
func UserRouter(r chi.Router, users UserService, authMiddleware func(http.Handler) http.Handler, logger *slog.Logger) {
	handler := NewUserHandler(users, logger)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.With(authMiddleware).Get("/me", handler.Me)
	r.Route("/{userID}", func(r chi.Router) {
		r.Get("/", handler.GetUser)
		r.With(authMiddleware).Put("/", handler.UpdateUser)
	})
}

// LoginResponse is returned on successful login. Token includes the
// "Bearer " prefix.
type LoginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterInput
	if err := decodeBody(r, &req, func(get func(string) string) {
		req.NameOfVendor = get("nameofvendor")
		req.Email = get("email")
		req.Password = get("password")
		req.Password2 = get("password2")
	}); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.users.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "user not found", "failed to register user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req services.LoginInput
	if err := decodeBody(r, &req, func(get func(string) string) {
		req.Email = get("email")
		req.Password = get("password")
	}); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	res, err := h.users.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"emailnotfound": "Email not found"})
			return
		}
		writeServiceError(w, r, h.logger, err, "user not found", "failed to authenticate")
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{Success: true, Token: res.Token})
}

// Me returns the current authenticated user.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		writeServiceError(w, r, h.logger, err, "user not found", "failed to load user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "user not found", "failed to load user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateUser accepts JSON or a multipart form; the form may carry a new
// avatar under "image".
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req services.ProfileUpdate
	if isMultipart(r) {
		if err := parseMultipart(w, r); err != nil {
			writeUploadError(w, err)
			return
		}
		req.NameOfVendor = r.FormValue("nameofvendor")
		req.Phone = r.FormValue("phone")
		req.State = r.FormValue("state")
		req.Sex = r.FormValue("sex")

		files, err := readImages(r.MultipartForm)
		if err != nil {
			writeUploadError(w, err)
			return
		}
		if len(files) > 1 {
			writeFieldErrors(w, map[string]string{formFieldImage: "only one avatar image is allowed"})
			return
		}
		if len(files) == 1 {
			req.Avatar = &files[0]
		}
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), claims.UserID, chi.URLParam(r, "userID"), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "user not found", "failed to update user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// decodeBody reads JSON into dst, or falls back to form values passed
// through fromForm for urlencoded and multipart bodies.
func decodeBody(r *http.Request, dst any, fromForm func(get func(string) string)) error {
	if isJSON(r) || r.Header.Get("Content-Type") == "" {
		return json.NewDecoder(r.Body).Decode(dst)
	}
	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			return err
		}
	} else if err := r.ParseForm(); err != nil {
		return err
	}
	fromForm(func(key string) string {
		return strings.TrimSpace(r.FormValue(key))
	})
	return nil
}
