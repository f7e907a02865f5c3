// internal/app/features/auditlog/handler.go
package auditlog

import (
	uierrors "github.com/dalemusser/zelus/internal/app/features/errors"
	"github.com/dalemusser/zelus/internal/app/store/audit"
	userstore "github.com/dalemusser/zelus/internal/app/store/users"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Audit  *audit.Store
	Users  *userstore.Store
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger
}

// NewHandler constructs the organization audit viewer bound to the given
// Mongo database and logger.
func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Audit:  audit.New(db),
		Users:  userstore.New(db),
		Log:    logger,
		ErrLog: errLog,
	}
}
