/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/friendsincode/signboard/internal/audit"
	"github.com/friendsincode/signboard/internal/models"
)

const (
	defaultAuditPage = 100
	maxAuditPage     = 1000
)

var errBadAuditQuery = errors.New("invalid audit query")

// handleAuditList pages through the audit trail, newest first. Malformed
// filters are rejected instead of silently widening the result.
func (a *API) handleAuditList(w http.ResponseWriter, r *http.Request) {
	filters, err := auditFiltersFrom(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "invalid_query",
			"message": err.Error(),
		})
		return
	}

	entries, total, err := a.auditSvc.Query(r.Context(), filters)
	if err != nil {
		a.logger.Error().Err(err).Msg("audit query failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "db_error",
			"message": "audit query failed",
		})
		return
	}
	if entries == nil {
		entries = []models.AuditLog{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    entries,
		"total":   total,
		"limit":   filters.Limit,
		"offset":  filters.Offset,
	})
}

func auditFiltersFrom(q url.Values) (audit.QueryFilters, error) {
	f := audit.QueryFilters{Limit: defaultAuditPage}

	f.UserID = optionalParam(q, "user_id")
	f.SequenceID = optionalParam(q, "seq_id")
	f.ResourceType = optionalParam(q, "resource_type")
	if action := optionalParam(q, "action"); action != nil {
		act := models.AuditAction(*action)
		f.Action = &act
	}

	var err error
	if f.StartTime, err = timeParam(q, "start_time"); err != nil {
		return f, err
	}
	if f.EndTime, err = timeParam(q, "end_time"); err != nil {
		return f, err
	}
	if f.StartTime != nil && f.EndTime != nil && f.EndTime.Before(*f.StartTime) {
		return f, fmt.Errorf("%w: end_time is before start_time", errBadAuditQuery)
	}

	if v := q.Get("limit"); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil || n < 1 || n > maxAuditPage {
			return f, fmt.Errorf("%w: limit must be between 1 and %d", errBadAuditQuery, maxAuditPage)
		}
		f.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil || n < 0 {
			return f, fmt.Errorf("%w: offset must be a non-negative integer", errBadAuditQuery)
		}
		f.Offset = n
	}
	return f, nil
}

func optionalParam(q url.Values, key string) *string {
	v := q.Get(key)
	if v == "" {
		return nil
	}
	return &v
}

// timeParam reads an RFC 3339 timestamp or epoch milliseconds.
func timeParam(q url.Values, key string) (*time.Time, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		t := time.UnixMilli(ms).UTC()
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be RFC 3339 or epoch milliseconds", errBadAuditQuery, key)
	}
	return &t, nil
}
