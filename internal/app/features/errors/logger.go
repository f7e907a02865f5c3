// internal/app/features/errors/logger.go
package errors

import (
	"net/http"

	"go.uber.org/zap"
)

// ErrorLogger logs a failure with request context and answers the client
// with a friendly page (or a short text body for HTMX requests). The log
// message and the user message are kept apart so internal details never
// reach the browser.
type ErrorLogger struct {
	Log *zap.Logger
}

// NewErrorLogger returns an ErrorLogger writing to logger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorLogger{Log: logger}
}

func (e *ErrorLogger) fields(r *http.Request, err error) []zap.Field {
	return []zap.Field{
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Full-page responses                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

// LogServerError logs at error level and renders a 500 page.
func (e *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, logMsg string, err error, userMsg, backURL string) {
	e.Log.Error(logMsg, e.fields(r, err)...)
	render(w, r, http.StatusInternalServerError, "Ocorreu um erro", userMsg, backURL)
}

// LogBadRequest logs at warn level and renders a 400 page.
func (e *ErrorLogger) LogBadRequest(w http.ResponseWriter, r *http.Request, logMsg string, err error, userMsg, backURL string) {
	e.Log.Warn(logMsg, e.fields(r, err)...)
	render(w, r, http.StatusBadRequest, "Pedido inválido", userMsg, backURL)
}

// LogForbidden logs at info level and renders a 403 page.
func (e *ErrorLogger) LogForbidden(w http.ResponseWriter, r *http.Request, logMsg string, err error, userMsg, backURL string) {
	e.Log.Info(logMsg, e.fields(r, err)...)
	RenderForbidden(w, r, userMsg, backURL)
}

// LogNotFound logs at debug level and renders a 404 page.
func (e *ErrorLogger) LogNotFound(w http.ResponseWriter, r *http.Request, logMsg string, backURL string) {
	e.Log.Debug(logMsg, zap.String("method", r.Method), zap.String("path", r.URL.Path))
	RenderNotFound(w, r, backURL)
}

/*─────────────────────────────────────────────────────────────────────────────*
| HTMX fragment responses                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// HTMXLogServerError logs and answers an HTMX request with a 500 text body.
func (e *ErrorLogger) HTMXLogServerError(w http.ResponseWriter, r *http.Request, logMsg string, err error, userMsg string) {
	e.Log.Error(logMsg, e.fields(r, err)...)
	http.Error(w, userMsg, http.StatusInternalServerError)
}

// HTMXLogBadRequest logs and answers an HTMX request with a 400 text body.
func (e *ErrorLogger) HTMXLogBadRequest(w http.ResponseWriter, r *http.Request, logMsg string, err error, userMsg string) {
	e.Log.Warn(logMsg, e.fields(r, err)...)
	http.Error(w, userMsg, http.StatusBadRequest)
}

// HTMXLogForbidden logs and answers an HTMX request with a 403 text body.
func (e *ErrorLogger) HTMXLogForbidden(w http.ResponseWriter, r *http.Request, logMsg string, err error, userMsg string) {
	e.Log.Info(logMsg, e.fields(r, err)...)
	http.Error(w, userMsg, http.StatusForbidden)
}
