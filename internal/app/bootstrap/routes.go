// internal/app/bootstrap/routes.go
package bootstrap

import (
	"context"
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/templates"
	auditlogfeature "github.com/dalemusser/zelus/internal/app/features/auditlog"
	authgooglefeature "github.com/dalemusser/zelus/internal/app/features/authgoogle"
	categoriesfeature "github.com/dalemusser/zelus/internal/app/features/categories"
	dashboardfeature "github.com/dalemusser/zelus/internal/app/features/dashboard"
	errorsfeature "github.com/dalemusser/zelus/internal/app/features/errors"
	fractionsfeature "github.com/dalemusser/zelus/internal/app/features/fractions"
	healthfeature "github.com/dalemusser/zelus/internal/app/features/health"
	homefeature "github.com/dalemusser/zelus/internal/app/features/home"
	invitesfeature "github.com/dalemusser/zelus/internal/app/features/invites"
	loginfeature "github.com/dalemusser/zelus/internal/app/features/login"
	logoutfeature "github.com/dalemusser/zelus/internal/app/features/logout"
	maintenancefeature "github.com/dalemusser/zelus/internal/app/features/maintenance"
	membersfeature "github.com/dalemusser/zelus/internal/app/features/members"
	notificationsfeature "github.com/dalemusser/zelus/internal/app/features/notifications"
	onboardingfeature "github.com/dalemusser/zelus/internal/app/features/onboarding"
	profilefeature "github.com/dalemusser/zelus/internal/app/features/profile"
	registerfeature "github.com/dalemusser/zelus/internal/app/features/register"
	suppliersfeature "github.com/dalemusser/zelus/internal/app/features/suppliers"
	ticketsfeature "github.com/dalemusser/zelus/internal/app/features/tickets"
	categoryservice "github.com/dalemusser/zelus/internal/app/services/categories"
	fractionservice "github.com/dalemusser/zelus/internal/app/services/fractions"
	inviteservice "github.com/dalemusser/zelus/internal/app/services/invites"
	orgservice "github.com/dalemusser/zelus/internal/app/services/organizations"
	ticketservice "github.com/dalemusser/zelus/internal/app/services/tickets"
	"github.com/dalemusser/zelus/internal/app/store/audit"
	memberstore "github.com/dalemusser/zelus/internal/app/store/members"
	notificationstore "github.com/dalemusser/zelus/internal/app/store/notifications"
	organizationstore "github.com/dalemusser/zelus/internal/app/store/organizations"
	userfractionstore "github.com/dalemusser/zelus/internal/app/store/userfractions"
	userstore "github.com/dalemusser/zelus/internal/app/store/users"
	"github.com/dalemusser/zelus/internal/app/system/auditlog"
	"github.com/dalemusser/zelus/internal/app/system/auth"
	"github.com/dalemusser/zelus/internal/app/system/authz"
	"github.com/dalemusser/zelus/internal/app/system/metrics"
	"github.com/dalemusser/zelus/internal/app/system/ratelimit"
	"github.com/dalemusser/zelus/internal/app/system/viewdata"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"github.com/gorilla/handlers"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. At this point you have access to:
//   - coreCfg: WAFFLE core configuration (ports, env, timeouts, etc.)
//   - appCfg: app-specific configuration defined in AppConfig
//   - deps: any DB or backend clients bundled in DBDeps
//   - logger: the fully configured zap.Logger for this app
//
// Zelus initializes the template engine, builds the session manager and the
// access guard, wraps everything in recovery, proxy, compression and CSRF
// middleware, and mounts the feature routers.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase
	client := deps.MongoClient

	// Create the session manager using app config.
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Fetch fresh user data on each request so removed accounts lose access
	// immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(db))

	// Initialize and boot the template engine once at startup.
	// Dev mode enables template reloading for faster iteration.
	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	// Create error logger for handlers.
	errLog := errorsfeature.NewErrorLogger(logger)
	errorsHandler := errorsfeature.NewHandler()

	auditLog := auditlog.New(audit.New(db), logger, auditlog.Config{
		Auth: appCfg.AuditLogAuth,
		Org:  appCfg.AuditLogOrg,
	})

	guard := authz.NewGuard(
		authz.NewResolver(memberstore.New(db), userfractionstore.New(db)),
		organizationstore.New(db),
		logger,
	)
	guard.SetForbiddenHandler(errorsHandler.Forbidden)

	notifications := notificationstore.New(db)
	viewdata.SetUnreadCounter(func(ctx context.Context, orgID, userID primitive.ObjectID) int64 {
		n, err := notifications.CountUnread(ctx, orgID, userID)
		if err != nil {
			logger.Warn("unread count failed", zap.Error(err))
			return 0
		}
		return n
	})

	// Domain services shared by several features.
	orgSvc := orgservice.New(client, db, auditLog, logger)
	fractionSvc := fractionservice.New(db, auditLog)
	categorySvc := categoryservice.New(client, db, auditLog, logger)
	ticketSvc := ticketservice.New(client, db, auditLog, logger)
	inviteSvc := inviteservice.New(client, db, auditLog, appCfg.InviteTTL, logger)

	r := chi.NewRouter()

	// Outermost first: recover panics, trust proxy headers, compress, then
	// check CSRF tokens on unsafe methods.
	r.Use(handlers.RecoveryHandler(
		handlers.RecoveryLogger(zap.NewStdLog(logger)),
		handlers.PrintRecoveryStack(coreCfg.Env == "dev"),
	))
	r.Use(handlers.ProxyHeaders)
	r.Use(handlers.CompressHandler)
	r.Use(csrfMiddleware(appCfg, secure, errorsHandler, logger))

	// Global auth middleware: loads the Session into context if signed in.
	// This makes the current user available to all handlers via auth.CurrentUser(r).
	r.Use(sessionMgr.LoadSession)

	r.NotFound(errorsHandler.NotFound)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(client, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	if appCfg.MetricsEnabled {
		r.Handle("/metrics", metrics.Handler())
	}

	// Static assets with pre-compressed file support (gzip/brotli)
	r.Handle("/static/*", fileserver.Handler("/static", "public"))

	// Public pages
	homeHandler := homefeature.NewHandler(logger)
	r.Mount("/", homefeature.Routes(homeHandler))

	r.Get("/forbidden", errorsHandler.Forbidden)

	// Authentication
	loginHandler := loginfeature.NewHandler(db, sessionMgr, errLog, auditLog, ratelimit.NewLoginLimiter(), appCfg.GoogleEnabled(), logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	registerHandler := registerfeature.NewHandler(db, sessionMgr, errLog, auditLog, appCfg.GoogleEnabled(), logger)
	r.Mount("/register", registerfeature.Routes(registerHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, auditLog, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler, sessionMgr))

	if appCfg.GoogleEnabled() {
		googleHandler := authgooglefeature.NewHandler(db, sessionMgr, auditLog,
			appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.BaseURL, logger)
		r.Mount("/auth/google", authgooglefeature.Routes(googleHandler))
	}

	// Organization selection and creation
	onboardingHandler := onboardingfeature.NewHandler(orgSvc, fractionSvc, sessionMgr, errLog, logger)
	r.Mount("/onboarding", onboardingfeature.Routes(onboardingHandler, sessionMgr))

	invitesHandler := invitesfeature.NewHandler(db, inviteSvc, orgSvc, sessionMgr, appCfg.BaseURL, errLog, logger)
	r.Mount("/invites", invitesfeature.Routes(invitesHandler, sessionMgr))

	// Organization-scoped pages
	dashboardHandler := dashboardfeature.NewHandler(ticketSvc, fractionSvc, logger)
	r.Mount("/dashboard", dashboardfeature.Routes(dashboardHandler, sessionMgr, guard))

	ticketsHandler := ticketsfeature.NewHandler(ticketSvc, categorySvc, fractionSvc, errLog, logger)
	r.Mount("/tickets", ticketsfeature.Routes(ticketsHandler, sessionMgr, guard))

	fractionsHandler := fractionsfeature.NewHandler(fractionSvc, errLog, logger)
	r.Mount("/fractions", fractionsfeature.Routes(fractionsHandler, sessionMgr, guard))

	suppliersHandler := suppliersfeature.NewHandler(db, auditLog, errLog, logger)
	r.Mount("/suppliers", suppliersfeature.Routes(suppliersHandler, sessionMgr, guard))

	maintenanceHandler := maintenancefeature.NewHandler(db, auditLog, errLog, logger)
	r.Mount("/maintenance", maintenancefeature.Routes(maintenanceHandler, sessionMgr, guard))

	notificationsHandler := notificationsfeature.NewHandler(db, errLog, logger)
	r.Mount("/notifications", notificationsfeature.Routes(notificationsHandler, sessionMgr, guard))

	profileHandler := profilefeature.NewHandler(db, auditLog, errLog, logger)
	r.Mount("/profile", profilefeature.Routes(profileHandler, sessionMgr))

	// Organization administration
	categoriesHandler := categoriesfeature.NewHandler(categorySvc, errLog, logger)
	r.Mount("/admin/categories", categoriesfeature.Routes(categoriesHandler, sessionMgr, guard))

	r.Mount("/admin/invites", invitesfeature.AdminRoutes(invitesHandler, sessionMgr, guard))

	membersHandler := membersfeature.NewHandler(db, auditLog, errLog, logger)
	r.Mount("/admin/members", membersfeature.Routes(membersHandler, sessionMgr, guard))

	auditHandler := auditlogfeature.NewHandler(db, errLog, logger)
	r.Mount("/admin/audit", auditlogfeature.Routes(auditHandler, sessionMgr, guard))

	return r, nil
}

// csrfMiddleware builds the gorilla/csrf protection. Over plain HTTP (dev)
// requests are marked as plaintext so the Referer check does not demand TLS.
func csrfMiddleware(appCfg AppConfig, secure bool, errorsHandler *errorsfeature.Handler, logger *zap.Logger) func(http.Handler) http.Handler {
	protect := csrf.Protect(
		[]byte(appCfg.CSRFKey),
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Warn("csrf check failed", zap.String("path", r.URL.Path), zap.Error(csrf.FailureReason(r)))
			errorsHandler.Forbidden(w, r)
		})),
	)
	return func(next http.Handler) http.Handler {
		h := protect(next)
		if secure {
			return h
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}
}
