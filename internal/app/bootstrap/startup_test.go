package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/zelus/internal/testutil"
	"go.uber.org/zap"
)

func validAppConfig() AppConfig {
	return AppConfig{
		MongoURI:      "mongodb://localhost:27017",
		MongoDatabase: "zelus_test",
		SessionKey:    devSessionKey,
		SessionName:   "zelus-session",
		SessionMaxAge: time.Hour,
		CSRFKey:       devCSRFKey,
		BaseURL:       "http://localhost:3000",
		AuditLogAuth:  "all",
		AuditLogOrg:   "db",
		InviteTTL:     7 * 24 * time.Hour,
	}
}

func TestValidateConfig(t *testing.T) {
	dev := &config.CoreConfig{Env: "dev"}
	prod := &config.CoreConfig{Env: "prod"}

	tests := []struct {
		name    string
		core    *config.CoreConfig
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{"defaults in dev", dev, func(*AppConfig) {}, false},
		{"bad mongo uri", dev, func(c *AppConfig) { c.MongoURI = "postgres://x" }, true},
		{"empty database", dev, func(c *AppConfig) { c.MongoDatabase = "" }, true},
		{"short csrf key", dev, func(c *AppConfig) { c.CSRFKey = "short" }, true},
		{"unknown audit mode", dev, func(c *AppConfig) { c.AuditLogOrg = "everything" }, true},
		{"zero invite ttl", dev, func(c *AppConfig) { c.InviteTTL = 0 }, true},
		{"dev session key in prod", prod, func(*AppConfig) {}, true},
		{"strong keys in prod", prod, func(c *AppConfig) {
			c.SessionKey = strings.Repeat("k", 48)
			c.CSRFKey = strings.Repeat("c", 32)
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validAppConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(tt.core, cfg, zap.NewNop())
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGoogleEnabled(t *testing.T) {
	cfg := validAppConfig()
	if cfg.GoogleEnabled() {
		t.Error("Google sign-in should be off without credentials")
	}
	cfg.GoogleClientID = "id"
	if cfg.GoogleEnabled() {
		t.Error("Google sign-in needs both the client id and secret")
	}
	cfg.GoogleClientSecret = "secret"
	if !cfg.GoogleEnabled() {
		t.Error("Google sign-in should be on with both credentials")
	}
}

func TestBuildHandler(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	core := &config.CoreConfig{Env: "test"}
	cfg := validAppConfig()
	cfg.MetricsEnabled = true
	deps := DBDeps{MongoClient: db.Client(), MongoDatabase: db}

	if err := EnsureSchema(ctx, core, cfg, deps, zap.NewNop()); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	runStartup(t, core, cfg, deps)

	h, err := BuildHandler(core, cfg, deps, zap.NewNop())
	if err != nil {
		t.Fatalf("BuildHandler failed: %v", err)
	}

	t.Run("health", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET /health = %d, want 200", rec.Code)
		}
	})

	t.Run("metrics", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET /metrics = %d, want 200", rec.Code)
		}
	})

	t.Run("post without csrf token is rejected", func(t *testing.T) {
		form := url.Values{"email": {"ana@example.pt"}, "password": {"whatever1"}}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, testutil.PostForm("/login", form))
		if rec.Code != http.StatusForbidden {
			t.Errorf("POST /login without token = %d, want 403", rec.Code)
		}
	})

	t.Run("org pages need a session", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, testutil.NewHTMLRequest(http.MethodGet, "/tickets"))
		if rec.Code != http.StatusSeeOther {
			t.Errorf("GET /tickets signed out = %d, want 303 to login", rec.Code)
		}
	})
}

func runStartup(t *testing.T, core *config.CoreConfig, cfg AppConfig, deps DBDeps) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := Startup(ctx, core, cfg, deps, zap.NewNop()); err != nil {
		t.Fatalf("Startup failed: %v", err)
	}
	if scheduler == nil {
		t.Fatal("Startup should start the housekeeping scheduler")
	}
	t.Cleanup(func() {
		scheduler.Stop(context.Background())
		scheduler = nil
	})
}
