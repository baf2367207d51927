/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"

	"github.com/friendsincode/signboard/internal/auth"
)

// handleUsersList lists accounts so admins can pick ids for sequence membership.
func (a *API) handleUsersList(w http.ResponseWriter, r *http.Request) {
	users, err := auth.ListUsers(r.Context(), a.db)
	if err != nil {
		a.logger.Error().Err(err).Msg("list users failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, users)
}
