/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/signboard/internal/campaign"
	"github.com/friendsincode/signboard/internal/stacks"
)

func (a *API) handleCampaigns(w http.ResponseWriter, r *http.Request) {
	result, err := a.aggregator.AggregateAll(r.Context(), callerFrom(r))
	if err != nil {
		a.writeCampaignError(w, err, "aggregate campaigns")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleMySequences returns {seq_name: seq_id} for the caller's sequences.
func (a *API) handleMySequences(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r)
	names, err := a.sequences.NamesByID(r.Context(), caller.UserID)
	if err != nil {
		a.logger.Error().Err(err).Str("user_id", caller.UserID).Msg("list user sequences failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (a *API) handleItemGet(w http.ResponseWriter, r *http.Request) {
	seqID := chi.URLParam(r, "seqID")
	programmaticID := chi.URLParam(r, "programmaticID")

	loc, err := a.items.Locate(r.Context(), callerFrom(r), seqID, programmaticID)
	if err != nil {
		a.writeCampaignError(w, err, "locate item")
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

func (a *API) handleItemUpdate(w http.ResponseWriter, r *http.Request) {
	seqID := chi.URLParam(r, "seqID")
	programmaticID := chi.URLParam(r, "programmaticID")

	var req campaign.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	loc, err := a.items.Update(r.Context(), callerFrom(r), seqID, programmaticID, req)
	if err != nil {
		a.writeCampaignError(w, err, "update item")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "location": loc})
}

func (a *API) handleItemDelete(w http.ResponseWriter, r *http.Request) {
	seqID := chi.URLParam(r, "seqID")
	programmaticID := chi.URLParam(r, "programmaticID")

	loc, err := a.items.Delete(r.Context(), callerFrom(r), seqID, programmaticID)
	if err != nil {
		a.writeCampaignError(w, err, "delete item")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "location": loc})
}

// writeCampaignError maps campaign and Stacks errors to HTTP responses. The
// body keeps the dashboard's {success: false, message} shape alongside the code.
func (a *API) writeCampaignError(w http.ResponseWriter, err error, op string) {
	var statusErr *stacks.StatusError
	status, code := http.StatusBadGateway, "stacks_unavailable"
	switch {
	case errors.Is(err, campaign.ErrNotAuthenticated):
		status, code = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, campaign.ErrSequenceForbidden):
		status, code = http.StatusForbidden, "sequence_forbidden"
	case errors.Is(err, campaign.ErrDefaultCampaign):
		status, code = http.StatusConflict, "default_campaign"
	case errors.Is(err, campaign.ErrInvalidWindow):
		status, code = http.StatusBadRequest, "invalid_window"
	case errors.Is(err, campaign.ErrLibraryItemRequired):
		status, code = http.StatusBadRequest, "library_item_required"
	case errors.Is(err, campaign.ErrUnknownFormat):
		status, code = http.StatusBadRequest, "unknown_format"
	case errors.Is(err, stacks.ErrItemNotFound):
		status, code = http.StatusNotFound, "item_not_found"
	case errors.Is(err, campaign.ErrPersistence):
		status, code = http.StatusInternalServerError, "db_error"
		a.logger.Error().Err(err).Msg(op + " failed")
	case errors.As(err, &statusErr):
		code = "stacks_error"
		a.logger.Warn().Err(err).Int("status", statusErr.Status).Msg(op + " rejected by stacks")
	default:
		a.logger.Error().Err(err).Msg(op + " failed")
	}

	message := err.Error()
	if status >= http.StatusInternalServerError {
		message = op + " failed"
	}
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   code,
		"message": message,
	})
}
