/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/friendsincode/signboard/internal/auth"
	"github.com/friendsincode/signboard/internal/events"
	"github.com/friendsincode/signboard/internal/models"
)

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresIn int64       `json:"expires_in"`
	User      models.User `json:"user"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "credentials_required")
		return
	}

	user, err := auth.Authenticate(r.Context(), a.db, req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Msg("login lookup failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	token, err := auth.Issue(a.jwtSecret, auth.Claims{
		UserID:     user.ID,
		Email:      user.Email,
		Permission: user.Permission,
	}, a.jwtTTL)
	if err != nil {
		a.logger.Error().Err(err).Msg("issue token failed")
		writeError(w, http.StatusInternalServerError, "token_error")
		return
	}

	payload := a.auditContext(r)
	payload["user_id"] = user.ID
	payload["user_email"] = user.Email
	payload["resource_type"] = "user"
	payload["resource_id"] = user.ID
	a.bus.Publish(events.EventAuditUserLogin, payload)

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresIn: int64(a.jwtTTL.Seconds()),
		User:      *user,
	})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := auth.GetUser(r.Context(), a.db, claims.UserID)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "unknown_user")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Msg("load current user failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
