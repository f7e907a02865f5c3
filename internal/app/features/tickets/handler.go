// internal/app/features/tickets/handler.go
package tickets

import (
	uierrors "github.com/dalemusser/zelus/internal/app/features/errors"
	categoryservice "github.com/dalemusser/zelus/internal/app/services/categories"
	fractionservice "github.com/dalemusser/zelus/internal/app/services/fractions"
	ticketservice "github.com/dalemusser/zelus/internal/app/services/tickets"
	"go.uber.org/zap"
)

// Handler is the shared dependency container for the tickets feature.
// Every handler runs behind the organization guard, so the active
// organization and effective role come from authz.FromRequest.
type Handler struct {
	Tickets    *ticketservice.Service
	Categories *categoryservice.Service
	Fractions  *fractionservice.Service
	ErrLog     *uierrors.ErrorLogger
	Log        *zap.Logger
}

func NewHandler(tickets *ticketservice.Service, categories *categoryservice.Service, fractions *fractionservice.Service, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Tickets:    tickets,
		Categories: categories,
		Fractions:  fractions,
		ErrLog:     errLog,
		Log:        logger,
	}
}
