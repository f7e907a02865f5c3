// internal/app/features/invites/handler.go
package invites

import (
	"strings"

	uierrors "github.com/dalemusser/zelus/internal/app/features/errors"
	inviteservice "github.com/dalemusser/zelus/internal/app/services/invites"
	orgservice "github.com/dalemusser/zelus/internal/app/services/organizations"
	fractionstore "github.com/dalemusser/zelus/internal/app/store/fractions"
	"github.com/dalemusser/zelus/internal/app/system/auth"
	"github.com/dalemusser/zelus/internal/app/system/authz"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves invite management for org admins and the acceptance page
// invitees land on.
type Handler struct {
	Invites    *inviteservice.Service
	Orgs       *orgservice.Service
	Fractions  *fractionstore.Store
	SessionMgr *auth.SessionManager
	ErrLog     *uierrors.ErrorLogger
	Log        *zap.Logger

	// BaseURL prefixes the shareable invite links.
	BaseURL string
}

func NewHandler(db *mongo.Database, invites *inviteservice.Service, orgs *orgservice.Service, sessionMgr *auth.SessionManager, baseURL string, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Invites:    invites,
		Orgs:       orgs,
		Fractions:  fractionstore.New(db),
		SessionMgr: sessionMgr,
		ErrLog:     errLog,
		Log:        logger,
		BaseURL:    strings.TrimRight(baseURL, "/"),
	}
}

func (h *Handler) link(token string) string {
	return h.BaseURL + "/invites/" + token
}

func roleLabel(role string) string {
	return authz.EffectiveRole(role).Label()
}
