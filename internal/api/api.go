/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	ws "nhooyr.io/websocket"

	"github.com/friendsincode/signboard/internal/audit"
	"github.com/friendsincode/signboard/internal/auth"
	"github.com/friendsincode/signboard/internal/campaign"
	"github.com/friendsincode/signboard/internal/events"
	"github.com/friendsincode/signboard/internal/format"
	"github.com/friendsincode/signboard/internal/models"
	"github.com/friendsincode/signboard/internal/sequence"
	"github.com/friendsincode/signboard/internal/telemetry"
)

// API exposes HTTP handlers.
type API struct {
	db         *gorm.DB
	jwtSecret  []byte
	jwtTTL     time.Duration
	aggregator *campaign.Aggregator
	items      *campaign.ItemService
	sequences  *sequence.Store
	formats    *format.Store
	auditSvc   *audit.Service
	bus        events.Broker
	logger     zerolog.Logger
}

// New creates the API router wrapper.
func New(db *gorm.DB, jwtSecret []byte, jwtTTL time.Duration, aggregator *campaign.Aggregator, items *campaign.ItemService, sequences *sequence.Store, formats *format.Store, auditSvc *audit.Service, bus events.Broker, logger zerolog.Logger) *API {
	return &API{
		db:         db,
		jwtSecret:  jwtSecret,
		jwtTTL:     jwtTTL,
		aggregator: aggregator,
		items:      items,
		sequences:  sequences,
		formats:    formats,
		auditSvc:   auditSvc,
		bus:        bus,
		logger:     logger.With().Str("component", "api").Logger(),
	}
}

// Routes registers all API routes.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)
		r.Post("/auth/login", a.handleLogin)

		r.Group(func(pr chi.Router) {
			pr.Use(a.authMiddleware())

			pr.Get("/me", a.handleMe)
			pr.With(a.requirePermission(models.PermissionViewer)).Get("/campaigns", a.handleCampaigns)
			pr.With(a.requirePermission(models.PermissionViewer)).Get("/events", a.handleEvents)
			pr.With(a.requirePermission(models.PermissionManager)).Get("/audit", a.handleAuditList)
			pr.With(a.requirePermission(models.PermissionAdmin)).Get("/users", a.handleUsersList)

			pr.Route("/formats", func(r chi.Router) {
				r.With(a.requirePermission(models.PermissionEditor)).Get("/", a.handleFormatsList)
				r.With(a.requirePermission(models.PermissionAdmin)).Post("/", a.handleFormatsCreate)
				r.With(a.requirePermission(models.PermissionAdmin)).Patch("/{formID}", a.handleFormatsUpdate)
				r.With(a.requirePermission(models.PermissionAdmin)).Delete("/{formID}", a.handleFormatsDelete)
			})

			pr.Route("/sequences", func(r chi.Router) {
				r.With(a.requirePermission(models.PermissionViewer)).Get("/mine", a.handleMySequences)

				r.With(a.requirePermission(models.PermissionAdmin)).Get("/", a.handleSequencesList)
				r.With(a.requirePermission(models.PermissionAdmin)).Post("/", a.handleSequencesCreate)

				r.Route("/{seqID}", func(r chi.Router) {
					r.With(a.requirePermission(models.PermissionAdmin)).Patch("/", a.handleSequencesUpdate)
					r.With(a.requirePermission(models.PermissionAdmin)).Delete("/", a.handleSequencesDelete)

					r.Route("/users", func(r chi.Router) {
						r.Use(a.requirePermission(models.PermissionAdmin))
						r.Get("/", a.handleSequenceMembers)
						r.Post("/", a.handleSequenceAssign)
						r.Delete("/{userID}", a.handleSequenceUnassign)
					})

					r.Route("/items/{programmaticID}", func(r chi.Router) {
						r.With(a.requirePermission(models.PermissionViewer)).Get("/", a.handleItemGet)
						r.With(a.requirePermission(models.PermissionEditor)).Put("/", a.handleItemUpdate)
						r.With(a.requirePermission(models.PermissionEditor)).Delete("/", a.handleItemDelete)
					})
				})
			})
		})
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleEvents streams bus events to a websocket client. Clients pick event
// types with ?types=a,b; the default is every relayed campaign event.
func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		a.logger.Error().Err(err).Msg("websocket accept failed")
		return
	}
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	defer conn.Close(ws.StatusInternalError, "server error")

	telemetry.APIWebSocketConnections.Inc()
	defer telemetry.APIWebSocketConnections.Dec()

	eventTypes := parseEventTypes(r.URL.Query().Get("types"))
	if len(eventTypes) == 0 {
		eventTypes = append([]events.EventType{events.EventHealth}, events.Relayed...)
	}

	type delivery struct {
		eventType events.EventType
		payload   events.Payload
	}
	merged := make(chan delivery, 32)

	for _, eventType := range eventTypes {
		sub := a.bus.Subscribe(eventType)
		defer a.bus.Unsubscribe(eventType, sub)

		go func(eventType events.EventType, sub events.Subscriber) {
			for {
				select {
				case <-ctx.Done():
					return
				case payload, ok := <-sub:
					if !ok {
						return
					}
					select {
					case merged <- delivery{eventType: eventType, payload: payload}:
					case <-ctx.Done():
						return
					}
				}
			}
		}(eventType, sub)
	}

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(ws.StatusNormalClosure, "context cancelled")
			return
		case <-ticker.C:
			if err := conn.Write(ctx, ws.MessageText, []byte(`{"type":"ping"}`)); err != nil {
				a.logger.Debug().Err(err).Msg("websocket ping failed")
				conn.Close(ws.StatusInternalError, "write failed")
				return
			}
		case d := <-merged:
			if err := a.writeEvent(ctx, conn, d.eventType, d.payload); err != nil {
				a.logger.Debug().Err(err).Msg("websocket write failed")
				conn.Close(ws.StatusInternalError, "write failed")
				return
			}
		}
	}
}

func (a *API) writeEvent(ctx context.Context, conn *ws.Conn, eventType events.EventType, payload events.Payload) error {
	data := map[string]any{
		"type":    eventType,
		"payload": payload,
	}
	bytes, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return conn.Write(ctx, ws.MessageText, bytes)
}

func (a *API) authMiddleware() func(http.Handler) http.Handler {
	return auth.Middleware(a.jwtSecret)
}

func (a *API) requirePermission(required models.Permission) func(http.Handler) http.Handler {
	return auth.RequirePermission(required)
}

// callerFrom turns verified claims into the identity the campaign services expect.
func callerFrom(r *http.Request) campaign.Caller {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok || claims == nil {
		return campaign.Caller{}
	}
	return campaign.Caller{
		UserID:        claims.UserID,
		Email:         claims.Email,
		Authenticated: true,
	}
}

func parseEventTypes(raw string) []events.EventType {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]events.EventType, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, events.EventType(part))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// auditContext extracts user and request info for audit logging.
func (a *API) auditContext(r *http.Request) events.Payload {
	payload := events.Payload{
		"ip_address": r.RemoteAddr,
		"user_agent": r.UserAgent(),
	}
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok && claims != nil {
		payload["user_id"] = claims.UserID
		payload["user_email"] = claims.Email
	}
	return payload
}

// publishAuditEvent publishes an audit event with user and request context.
func (a *API) publishAuditEvent(r *http.Request, eventType events.EventType, data events.Payload) {
	payload := a.auditContext(r)
	for k, v := range data {
		payload[k] = v
	}
	a.bus.Publish(eventType, payload)
}
