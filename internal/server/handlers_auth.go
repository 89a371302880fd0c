package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"fleetonboard/internal/app"
	"fleetonboard/internal/util"
	"fleetonboard/pkg/auth"
	"fleetonboard/pkg/domain"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenResponse struct {
	User         domain.User `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	user, access, refresh, err := s.app.SignUp(req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrEmailAndPasswordRequired), errors.Is(err, auth.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, app.ErrEmailAlreadyExists):
			writeError(w, http.StatusConflict, err.Error())
		default:
			util.LoggerFromContext(r.Context()).Error("signup failed", "err", err)
			writeError(w, http.StatusInternalServerError, "signup failed")
		}
		return
	}
	writeJSON(w, http.StatusCreated, tokenResponse{User: user, AccessToken: access, RefreshToken: refresh})
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	user, access, refresh, err := s.app.SignIn(req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidCredentials), errors.Is(err, app.ErrUserDisabled):
			writeError(w, http.StatusUnauthorized, "invalid email or password")
		default:
			util.LoggerFromContext(r.Context()).Error("login failed", "err", err)
			writeError(w, http.StatusInternalServerError, "login failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{User: user, AccessToken: access, RefreshToken: refresh})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	user, access, refresh, err := s.app.Refresh(req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrRefreshTokenRequired):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, app.ErrInvalidRefreshToken):
			writeError(w, http.StatusUnauthorized, err.Error())
		default:
			util.LoggerFromContext(r.Context()).Error("token refresh failed", "err", err)
			writeError(w, http.StatusInternalServerError, "token refresh failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{User: user, AccessToken: access, RefreshToken: refresh})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	// Body is optional; logout without a refresh token only drops the session.
	_ = json.NewDecoder(r.Body).Decode(&req)
	if err := s.app.Logout(bearerToken(r), req.RefreshToken); err != nil {
		util.LoggerFromContext(r.Context()).Warn("logout cleanup failed", "err", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}
