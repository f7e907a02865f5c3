package authz_test

import (
	"context"

	"github.com/dalemusser/zelus/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type memberKey struct{ org, user primitive.ObjectID }

type fakeMembers struct {
	rows map[memberKey]*models.Member
	err  error
}

func (f *fakeMembers) Get(_ context.Context, orgID, userID primitive.ObjectID) (*models.Member, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rows[memberKey{orgID, userID}], nil
}

type fakeFractions struct {
	rows  map[memberKey]*models.UserFraction
	calls int
}

func (f *fakeFractions) FindApproved(_ context.Context, orgID, userID primitive.ObjectID) (*models.UserFraction, error) {
	f.calls++
	return f.rows[memberKey{orgID, userID}], nil
}

type fakeOrgs struct {
	rows map[primitive.ObjectID]models.Organization
}

func (f *fakeOrgs) GetByID(_ context.Context, id primitive.ObjectID) (models.Organization, error) {
	org, ok := f.rows[id]
	if !ok {
		return models.Organization{}, mongo.ErrNoDocuments
	}
	return org, nil
}

// world is a small in-memory organization with one user per role.
type world struct {
	org       models.Organization
	owner     primitive.ObjectID
	fracAdmin primitive.ObjectID
	plain     primitive.ObjectID
	outsider  primitive.ObjectID

	members   *fakeMembers
	fractions *fakeFractions
	orgs      *fakeOrgs
}

func newWorld() *world {
	w := &world{
		org:       models.Organization{ID: primitive.NewObjectID(), Name: "Edifício Aurora"},
		owner:     primitive.NewObjectID(),
		fracAdmin: primitive.NewObjectID(),
		plain:     primitive.NewObjectID(),
		outsider:  primitive.NewObjectID(),
	}
	w.members = &fakeMembers{rows: map[memberKey]*models.Member{
		{w.org.ID, w.owner}:     {OrgID: w.org.ID, UserID: w.owner, Role: models.MemberRoleOwner},
		{w.org.ID, w.fracAdmin}: {OrgID: w.org.ID, UserID: w.fracAdmin, Role: models.MemberRoleMember},
		{w.org.ID, w.plain}:     {OrgID: w.org.ID, UserID: w.plain, Role: models.MemberRoleMember},
	}}
	w.fractions = &fakeFractions{rows: map[memberKey]*models.UserFraction{
		{w.org.ID, w.owner}:     {Role: models.FractionRoleMember, Status: models.UserFractionApproved},
		{w.org.ID, w.fracAdmin}: {Role: models.FractionRoleOwnerAdmin, Status: models.UserFractionApproved},
	}}
	w.orgs = &fakeOrgs{rows: map[primitive.ObjectID]models.Organization{w.org.ID: w.org}}
	return w
}
