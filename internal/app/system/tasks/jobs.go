// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"

	invitestore "github.com/dalemusser/zelus/internal/app/store/invites"
	"github.com/dalemusser/zelus/internal/app/store/oauthstate"
	"go.uber.org/zap"
)

// InviteExpiryJob marks pending invites past their expiry as expired.
func InviteExpiryJob(invites *invitestore.Store, logger *zap.Logger) Job {
	return Job{
		Name: "invite-expiry",
		Spec: "@every 15m",
		Run: func(ctx context.Context) error {
			count, err := invites.ExpireAllStale(ctx)
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Info("expired stale invites", zap.Int64("count", count))
			}
			return nil
		},
	}
}

// OAuthStateCleanupJob creates a job that removes expired OAuth state tokens.
// This is a backup for when MongoDB's TTL index cleanup is delayed.
func OAuthStateCleanupJob(stateStore *oauthstate.Store, logger *zap.Logger) Job {
	return Job{
		Name: "oauth-state-cleanup",
		Spec: "@hourly",
		Run: func(ctx context.Context) error {
			count, err := stateStore.CleanupExpired(ctx)
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Debug("cleaned up expired OAuth states", zap.Int64("count", count))
			}
			return nil
		},
	}
}
