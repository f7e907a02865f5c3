// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/zelus/internal/app/store/audit"
	"github.com/dalemusser/zelus/internal/app/system/metrics"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destination settings for a category.
const (
	ModeAll = "all" // MongoDB + zap
	ModeDB  = "db"
	ModeLog = "log"
	ModeOff = "off"
)

// Config selects where each event category goes.
type Config struct {
	// Auth covers sign-in, sign-up and sign-out.
	Auth string
	// Org covers mutations inside an organization (tickets, categories,
	// fractions, suppliers, invites).
	Org string
}

// Logger writes audit events to the audit store and to zap.
//
// A failed store write is logged and counted but never returned: the
// mutation that triggered the event has already happened.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{store: store, zapLog: zapLog, config: config}
}

func (l *Logger) mode(category string) string {
	var m string
	switch category {
	case audit.CategoryAuth:
		m = l.config.Auth
	case audit.CategoryOrg:
		m = l.config.Org
	}
	if m == "" {
		return ModeAll
	}
	return m
}

func (l *Logger) logToZap(event audit.Event) {
	if l.zapLog == nil {
		return
	}
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("action", event.Action),
	}
	if event.OrgID != nil {
		fields = append(fields, zap.String("org_id", event.OrgID.Hex()))
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.EntityType != "" {
		fields = append(fields, zap.String("entity_type", event.EntityType))
	}
	if event.EntityID != nil {
		fields = append(fields, zap.String("entity_id", event.EntityID.Hex()))
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if len(event.Metadata) > 0 {
		fields = append(fields, zap.Any("metadata", event.Metadata))
	}
	l.zapLog.Info("audit event", fields...)
}

// Log records event according to the configured mode for its category.
// A nil Logger is a no-op.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}
	mode := l.mode(event.Category)
	if mode == ModeOff {
		return
	}
	if mode == ModeAll || mode == ModeLog {
		l.logToZap(event)
	}
	if (mode == ModeAll || mode == ModeDB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			metrics.AuditWriteFailures.Inc()
			if l.zapLog != nil {
				l.zapLog.Error("failed to store audit event",
					zap.Error(err),
					zap.String("action", event.Action),
				)
			}
		}
	}
}

// Record logs a mutation inside an organization.
func (l *Logger) Record(ctx context.Context, orgID, userID primitive.ObjectID, action, entityType string, entityID primitive.ObjectID, metadata map[string]any) {
	ev := audit.Event{
		Category:   audit.CategoryOrg,
		OrgID:      &orgID,
		Action:     action,
		EntityType: entityType,
		Metadata:   metadata,
	}
	if !userID.IsZero() {
		ev.UserID = &userID
	}
	if !entityID.IsZero() {
		ev.EntityID = &entityID
	}
	l.Log(ctx, ev)
}

// --- Authentication events ---

func authEvent(r *http.Request, action string) audit.Event {
	return audit.Event{
		Category:  audit.CategoryAuth,
		Action:    action,
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}
}

// LoginSuccess logs a successful sign-in.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, method string) {
	ev := authEvent(r, audit.ActionLoginSuccess)
	ev.UserID = &userID
	ev.Metadata = map[string]any{"method": method}
	l.Log(ctx, ev)
}

// LoginFailed logs a rejected sign-in attempt.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, email, reason string) {
	ev := authEvent(r, audit.ActionLoginFailed)
	ev.Metadata = map[string]any{"email": email, "reason": reason}
	l.Log(ctx, ev)
}

// Registered logs a new account.
func (l *Logger) Registered(ctx context.Context, r *http.Request, userID primitive.ObjectID, method string) {
	ev := authEvent(r, audit.ActionRegistered)
	ev.UserID = &userID
	ev.EntityType = audit.EntityUser
	ev.EntityID = &userID
	ev.Metadata = map[string]any{"method": method}
	l.Log(ctx, ev)
}

// Logout logs a sign-out.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	ev := authEvent(r, audit.ActionLogout)
	if !userID.IsZero() {
		ev.UserID = &userID
	}
	l.Log(ctx, ev)
}

// ProfileUpdated logs a change to the user's own display name.
func (l *Logger) ProfileUpdated(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	ev := authEvent(r, audit.ActionProfileSaved)
	ev.UserID = &userID
	ev.EntityType = audit.EntityUser
	ev.EntityID = &userID
	l.Log(ctx, ev)
}

// PasswordChanged logs a password change made from the profile page.
func (l *Logger) PasswordChanged(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	ev := authEvent(r, audit.ActionPasswordSet)
	ev.UserID = &userID
	ev.EntityType = audit.EntityUser
	ev.EntityID = &userID
	l.Log(ctx, ev)
}
