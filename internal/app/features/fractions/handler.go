// internal/app/features/fractions/handler.go
package fractions

import (
	uierrors "github.com/dalemusser/zelus/internal/app/features/errors"
	fractionservice "github.com/dalemusser/zelus/internal/app/services/fractions"
	"go.uber.org/zap"
)

// Handler serves the fraction pages: the list every member sees, join
// requests, and the org admin's create and approval actions.
type Handler struct {
	Fractions *fractionservice.Service
	ErrLog    *uierrors.ErrorLogger
	Log       *zap.Logger
}

func NewHandler(fractions *fractionservice.Service, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Fractions: fractions, ErrLog: errLog, Log: logger}
}
