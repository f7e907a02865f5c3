// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each collection's set is reconciled
independently; problems are aggregated so startup fails with the full list.
*/
func EnsureAll(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	var problems []string
	for _, set := range collectionSets() {
		if err := ensureIndexSet(ctx, db.Collection(set.collection), set.models, log); err != nil {
			problems = append(problems, set.collection+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/*───────────────────────────────────────────────────────────────────────────────
| Reconcile helper
*───────────────────────────────────────────────────────────────────────────────*/

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func boolVal(b *bool) bool { return b != nil && *b }

// isDuplicateKeyErr detects E11000 across driver error shapes.
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	return strings.Contains(err.Error(), "E11000")
}

func listExisting(ctx context.Context, coll *mongo.Collection, log *zap.Logger) map[string]existingIndex {
	out := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		// collection not created yet
		return out
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			log.Warn("failed to decode existing index", zap.String("collection", coll.Name()), zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out
}

// ensureIndexSet creates each desired index, reusing an existing index with
// the same key pattern and options, and recreating one whose uniqueness
// differs.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel, log *zap.Logger) error {
	var errs []string
	existing := listExisting(ctx, coll, log)

	for _, m := range models {
		var name string
		var unique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				name = *m.Options.Name
			}
			unique = m.Options.Unique
		}
		sig := keySig(m.Keys.(bson.D))

		if ex, ok := existing[sig]; ok {
			if boolVal(unique) == boolVal(ex.Unique) {
				log.Debug("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", sig))
				continue
			}
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s: drop failed: %v", name, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if isDuplicateKeyErr(err) && boolVal(unique) {
				errs = append(errs, fmt.Sprintf("%s: cannot create unique index (duplicates present)", name))
			} else {
				errs = append(errs, fmt.Sprintf("%s: %v", name, err))
			}
			continue
		}
		log.Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Bool("unique", boolVal(unique)))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/*───────────────────────────────────────────────────────────────────────────────
| Collection index sets
*───────────────────────────────────────────────────────────────────────────────*/

type indexSet struct {
	collection string
	models     []mongo.IndexModel
}

func idx(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name)}
}

func uniq(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetUnique(true).SetName(name)}
}

func collectionSets() []indexSet {
	return []indexSet{
		{"users", []mongo.IndexModel{
			uniq("uniq_users_emailci", bson.D{{Key: "email_ci", Value: 1}}),
			// sparse: only Google-linked accounts carry google_id
			{
				Keys:    bson.D{{Key: "google_id", Value: 1}},
				Options: options.Index().SetUnique(true).SetSparse(true).SetName("uniq_users_googleid"),
			},
		}},
		{"organizations", []mongo.IndexModel{
			uniq("uniq_orgs_slug", bson.D{{Key: "slug", Value: 1}}),
			idx("idx_orgs_nameci", bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}),
		}},
		{"members", []mongo.IndexModel{
			uniq("uniq_members_org_user", bson.D{{Key: "org_id", Value: 1}, {Key: "user_id", Value: 1}}),
			idx("idx_members_user_created", bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: 1}}),
		}},
		{"fractions", []mongo.IndexModel{
			uniq("uniq_fractions_org_labelci", bson.D{{Key: "org_id", Value: 1}, {Key: "label_ci", Value: 1}}),
		}},
		{"user_fractions", []mongo.IndexModel{
			uniq("uniq_userfractions_user_fraction", bson.D{{Key: "user_id", Value: 1}, {Key: "fraction_id", Value: 1}}),
			idx("idx_userfractions_org_user_status", bson.D{
				{Key: "org_id", Value: 1}, {Key: "user_id", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: 1},
			}),
			idx("idx_userfractions_org_status", bson.D{{Key: "org_id", Value: 1}, {Key: "status", Value: 1}}),
		}},
		{"ticket_categories", []mongo.IndexModel{
			uniq("uniq_categories_org_labelci", bson.D{{Key: "org_id", Value: 1}, {Key: "label_ci", Value: 1}}),
		}},
		{"tickets", []mongo.IndexModel{
			idx("idx_tickets_org_created", bson.D{{Key: "org_id", Value: 1}, {Key: "created_at", Value: -1}}),
			idx("idx_tickets_org_status", bson.D{{Key: "org_id", Value: 1}, {Key: "status", Value: 1}}),
			idx("idx_tickets_org_category", bson.D{{Key: "org_id", Value: 1}, {Key: "category_id", Value: 1}}),
			idx("idx_tickets_org_fraction", bson.D{{Key: "org_id", Value: 1}, {Key: "fraction_id", Value: 1}}),
		}},
		{"ticket_events", []mongo.IndexModel{
			idx("idx_ticketevents_ticket_created", bson.D{{Key: "ticket_id", Value: 1}, {Key: "created_at", Value: 1}}),
		}},
		{"ticket_comments", []mongo.IndexModel{
			idx("idx_ticketcomments_ticket_created", bson.D{{Key: "ticket_id", Value: 1}, {Key: "created_at", Value: 1}}),
		}},
		{"suppliers", []mongo.IndexModel{
			idx("idx_suppliers_org_nameci", bson.D{{Key: "org_id", Value: 1}, {Key: "name_ci", Value: 1}}),
		}},
		{"maintenance_records", []mongo.IndexModel{
			idx("idx_maintenance_org_performed", bson.D{{Key: "org_id", Value: 1}, {Key: "performed_at", Value: -1}}),
		}},
		{"notifications", []mongo.IndexModel{
			idx("idx_notifications_user_org_created", bson.D{
				{Key: "user_id", Value: 1}, {Key: "org_id", Value: 1}, {Key: "created_at", Value: -1},
			}),
		}},
		{"invites", []mongo.IndexModel{
			uniq("uniq_invites_token", bson.D{{Key: "token", Value: 1}}),
			idx("idx_invites_org_created", bson.D{{Key: "org_id", Value: 1}, {Key: "created_at", Value: -1}}),
		}},
		{"audit_logs", []mongo.IndexModel{
			idx("idx_audit_org_created", bson.D{{Key: "org_id", Value: 1}, {Key: "created_at", Value: -1}}),
			idx("idx_audit_org_entity", bson.D{{Key: "org_id", Value: 1}, {Key: "entity_type", Value: 1}, {Key: "entity_id", Value: 1}}),
			idx("idx_audit_user_created", bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}),
		}},
		{"oauth_states", []mongo.IndexModel{
			uniq("uniq_oauth_state", bson.D{{Key: "state", Value: 1}}),
			{
				Keys:    bson.D{{Key: "expires_at", Value: 1}},
				Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_oauth_expires"),
			},
		}},
	}
}
