// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/zelus/internal/app/resources"
	invitestore "github.com/dalemusser/zelus/internal/app/store/invites"
	"github.com/dalemusser/zelus/internal/app/store/oauthstate"
	"github.com/dalemusser/zelus/internal/app/system/tasks"
	"github.com/dalemusser/zelus/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// scheduler runs background housekeeping; Shutdown stops it.
var scheduler *tasks.Scheduler

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It applies
// TIMEOUT_* overrides, loads the shared templates and starts the housekeeping
// jobs.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts overridden from environment", zap.Int("count", n), zap.Any("timeouts", timeouts.Current()))
	}
	resources.LoadSharedTemplates()

	s := tasks.NewScheduler(logger)
	for _, job := range []tasks.Job{
		tasks.InviteExpiryJob(invitestore.New(deps.MongoDatabase), logger),
		tasks.OAuthStateCleanupJob(oauthstate.New(deps.MongoDatabase), logger),
	} {
		if err := s.Add(job); err != nil {
			return fmt.Errorf("schedule %s: %w", job.Name, err)
		}
	}
	s.Start()
	scheduler = s
	return nil
}
