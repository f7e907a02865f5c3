// internal/app/features/profile/handler.go
package profile

import (
	uierrors "github.com/dalemusser/zelus/internal/app/features/errors"
	userstore "github.com/dalemusser/zelus/internal/app/store/users"
	"github.com/dalemusser/zelus/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns all user profile handlers.
type Handler struct {
	Users  *userstore.Store
	Audit  *auditlog.Logger
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger
}

// NewHandler constructs a Handler bound to the given Mongo database and logger.
func NewHandler(db *mongo.Database, auditLog *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:  userstore.New(db),
		Audit:  auditLog,
		Log:    logger,
		ErrLog: errLog,
	}
}
