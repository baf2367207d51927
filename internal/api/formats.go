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

	"github.com/friendsincode/signboard/internal/events"
	"github.com/friendsincode/signboard/internal/format"
	"github.com/friendsincode/signboard/internal/models"
)

func (a *API) handleFormatsList(w http.ResponseWriter, r *http.Request) {
	formats, err := a.formats.List(r.Context())
	if err != nil {
		a.writeFormatError(w, err, "list formats")
		return
	}
	writeJSON(w, http.StatusOK, formats)
}

func (a *API) handleFormatsCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string `json:"format"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Condition string `json:"condition"`
		Retailer  string `json:"retailer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	f := models.Format{
		Name:      req.Name,
		Width:     req.Width,
		Height:    req.Height,
		Condition: req.Condition,
		Retailer:  req.Retailer,
	}
	if err := a.formats.Create(r.Context(), &f); err != nil {
		a.writeFormatError(w, err, "create format")
		return
	}

	a.publishAuditEvent(r, events.EventAuditFormatCreate, formatAuditPayload(f.ID, f.Name))
	writeJSON(w, http.StatusCreated, f)
}

func (a *API) handleFormatsUpdate(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formID")

	var changes format.Changes
	if err := json.NewDecoder(r.Body).Decode(&changes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	f, err := a.formats.Update(r.Context(), formID, changes)
	if err != nil {
		a.writeFormatError(w, err, "update format")
		return
	}

	a.publishAuditEvent(r, events.EventAuditFormatUpdate, formatAuditPayload(f.ID, f.Name))
	writeJSON(w, http.StatusOK, f)
}

func (a *API) handleFormatsDelete(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formID")

	if err := a.formats.Delete(r.Context(), formID); err != nil {
		a.writeFormatError(w, err, "delete format")
		return
	}

	a.publishAuditEvent(r, events.EventAuditFormatDelete, formatAuditPayload(formID, ""))
	w.WriteHeader(http.StatusNoContent)
}

func formatAuditPayload(id, name string) events.Payload {
	payload := events.Payload{
		"resource_type": "format",
		"resource_id":   id,
	}
	if name != "" {
		payload["format"] = name
	}
	return payload
}

func (a *API) writeFormatError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, format.ErrFormatNotFound):
		writeError(w, http.StatusNotFound, "format_not_found")
	case errors.Is(err, format.ErrFormatExists):
		writeError(w, http.StatusConflict, "format_exists")
	case errors.Is(err, format.ErrInvalidFormat):
		writeError(w, http.StatusBadRequest, "invalid_format")
	default:
		a.logger.Error().Err(err).Msg(op + " failed")
		writeError(w, http.StatusInternalServerError, "db_error")
	}
}
