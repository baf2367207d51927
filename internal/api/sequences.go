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
	"github.com/friendsincode/signboard/internal/models"
	"github.com/friendsincode/signboard/internal/sequence"
)

func (a *API) handleSequencesList(w http.ResponseWriter, r *http.Request) {
	seqs, err := a.sequences.List(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("list sequences failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, seqs)
}

func (a *API) handleSequencesCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID       string `json:"seq_id"`
		Name     string `json:"seq_name"`
		Retailer string `json:"retailer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	seq := models.Sequence{ID: req.ID, Name: req.Name, Retailer: req.Retailer}
	if err := a.sequences.Create(r.Context(), &seq); err != nil {
		a.writeSequenceError(w, err, "create sequence")
		return
	}

	a.publishAuditEvent(r, events.EventAuditSequenceCreate, events.Payload{
		"seq_id":        seq.ID,
		"resource_type": "sequence",
		"resource_id":   seq.ID,
		"seq_name":      seq.Name,
	})
	a.bus.Publish(events.EventSequenceUpdated, events.Payload{"seq_id": seq.ID, "change": "created"})

	writeJSON(w, http.StatusCreated, seq)
}

func (a *API) handleSequencesUpdate(w http.ResponseWriter, r *http.Request) {
	seqID := chi.URLParam(r, "seqID")

	var req struct {
		Name     *string `json:"seq_name"`
		Retailer *string `json:"retailer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	seq, err := a.sequences.Update(r.Context(), seqID, req.Name, req.Retailer)
	if err != nil {
		a.writeSequenceError(w, err, "update sequence")
		return
	}

	a.publishAuditEvent(r, events.EventAuditSequenceUpdate, events.Payload{
		"seq_id":        seq.ID,
		"resource_type": "sequence",
		"resource_id":   seq.ID,
		"seq_name":      seq.Name,
	})
	a.bus.Publish(events.EventSequenceUpdated, events.Payload{"seq_id": seq.ID, "change": "updated"})

	writeJSON(w, http.StatusOK, seq)
}

func (a *API) handleSequencesDelete(w http.ResponseWriter, r *http.Request) {
	seqID := chi.URLParam(r, "seqID")

	if err := a.sequences.Delete(r.Context(), seqID); err != nil {
		a.writeSequenceError(w, err, "delete sequence")
		return
	}

	a.publishAuditEvent(r, events.EventAuditSequenceDelete, events.Payload{
		"seq_id":        seqID,
		"resource_type": "sequence",
		"resource_id":   seqID,
	})
	a.bus.Publish(events.EventSequenceUpdated, events.Payload{"seq_id": seqID, "change": "deleted"})

	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleSequenceMembers(w http.ResponseWriter, r *http.Request) {
	seqID := chi.URLParam(r, "seqID")
	if _, err := a.sequences.Get(r.Context(), seqID); err != nil {
		a.writeSequenceError(w, err, "get sequence")
		return
	}

	members, err := a.sequences.Members(r.Context(), seqID)
	if err != nil {
		a.writeSequenceError(w, err, "list members")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"seq_id": seqID, "user_ids": members})
}

func (a *API) handleSequenceAssign(w http.ResponseWriter, r *http.Request) {
	seqID := chi.URLParam(r, "seqID")

	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id_required")
		return
	}

	if err := a.sequences.Assign(r.Context(), seqID, req.UserID); err != nil {
		a.writeSequenceError(w, err, "assign user")
		return
	}

	a.publishAuditEvent(r, events.EventAuditSequenceAssign, events.Payload{
		"seq_id":        seqID,
		"resource_type": "sequence_user",
		"resource_id":   req.UserID,
	})
	a.bus.Publish(events.EventSequenceUpdated, events.Payload{"seq_id": seqID, "change": "assigned", "member": req.UserID})

	writeJSON(w, http.StatusOK, map[string]any{"seq_id": seqID, "user_id": req.UserID})
}

func (a *API) handleSequenceUnassign(w http.ResponseWriter, r *http.Request) {
	seqID := chi.URLParam(r, "seqID")
	userID := chi.URLParam(r, "userID")

	if err := a.sequences.Unassign(r.Context(), seqID, userID); err != nil {
		a.writeSequenceError(w, err, "unassign user")
		return
	}

	a.publishAuditEvent(r, events.EventAuditSequenceUnassign, events.Payload{
		"seq_id":        seqID,
		"resource_type": "sequence_user",
		"resource_id":   userID,
	})
	a.bus.Publish(events.EventSequenceUpdated, events.Payload{"seq_id": seqID, "change": "unassigned", "member": userID})

	w.WriteHeader(http.StatusNoContent)
}

func (a *API) writeSequenceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, sequence.ErrSequenceNotFound):
		writeError(w, http.StatusNotFound, "sequence_not_found")
	case errors.Is(err, sequence.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user_not_found")
	case errors.Is(err, sequence.ErrSequenceExists):
		writeError(w, http.StatusConflict, "sequence_exists")
	case errors.Is(err, sequence.ErrInvalidSequence):
		writeError(w, http.StatusBadRequest, "seq_id_and_name_required")
	default:
		a.logger.Error().Err(err).Msg(op + " failed")
		writeError(w, http.StatusInternalServerError, "db_error")
	}
}
