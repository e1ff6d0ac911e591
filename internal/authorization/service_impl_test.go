package authorization

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	coveragedomain "github.com/smallbiznis/lawdirectory/internal/coverage/domain"
	"github.com/smallbiznis/lawdirectory/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	svc      Service
	firmID   snowflake.ID
	owned    snowflake.ID
	sameFirm snowflake.ID
	other    snowflake.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := testutil.NewDB(t, &Profile{}, &coveragedomain.Lawyer{})
	node := testutil.NewNode(t)

	f := &fixture{db: conn, firmID: node.Generate()}
	owned := coveragedomain.Lawyer{ID: node.Generate(), FirstName: "Ada", LastName: "Owner", Slug: "ada-owner", LawFirmID: &f.firmID}
	sameFirm := coveragedomain.Lawyer{ID: node.Generate(), FirstName: "Ben", LastName: "Partner", Slug: "ben-partner", LawFirmID: &f.firmID}
	other := coveragedomain.Lawyer{ID: node.Generate(), FirstName: "Cy", LastName: "Solo", Slug: "cy-solo"}
	testutil.MustCreate(t, conn, &owned, &sameFirm, &other)
	f.owned, f.sameFirm, f.other = owned.ID, sameFirm.ID, other.ID

	testutil.MustCreate(t, conn,
		&Profile{ID: node.Generate(), UserID: "admin", Role: RoleSuperAdmin},
		&Profile{ID: node.Generate(), UserID: "ada", Role: RoleLawyer, LawyerID: &f.owned},
		&Profile{ID: node.Generate(), UserID: "firm", Role: RoleFirmAdmin, LawFirmID: &f.firmID},
		&Profile{ID: node.Generate(), UserID: "lawyer-with-firm", Role: RoleLawyer, LawyerID: &f.other, LawFirmID: &f.firmID},
	)

	enforcer, err := NewEnforcer(conn)
	require.NoError(t, err)
	f.svc = NewService(Params{DB: conn, Log: zaptest.NewLogger(t), Enforcer: enforcer})
	return f
}

func TestAuthorizeAdminCapabilities(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Authorize(ctx, "admin", ObjectPlanGroup, ActionGroupManage))
	require.NoError(t, f.svc.Authorize(ctx, "admin", ObjectAssignment, ActionAssignmentView))

	assert.ErrorIs(t, f.svc.Authorize(ctx, "ada", ObjectPlanGroup, ActionGroupManage), ErrForbidden)
	assert.ErrorIs(t, f.svc.Authorize(ctx, "firm", ObjectPlan, ActionPlanManage), ErrForbidden)
	assert.ErrorIs(t, f.svc.Authorize(ctx, "nobody", ObjectPlan, ActionPlanView), ErrForbidden)
}

func TestAuthorizeValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.Authorize(ctx, "  ", ObjectPlan, ActionPlanView), ErrInvalidActor)
	assert.ErrorIs(t, f.svc.Authorize(ctx, "admin", "", ActionPlanView), ErrInvalidObject)
	assert.ErrorIs(t, f.svc.Authorize(ctx, "admin", ObjectPlan, " "), ErrInvalidAction)
	assert.ErrorIs(t, f.svc.AuthorizeLawyerCoverage(ctx, "admin", 0), ErrInvalidObject)
}

func TestAuthorizeLawyerCoverage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		user     string
		lawyerID snowflake.ID
		allowed  bool
	}{
		{name: "super admin any lawyer", user: "admin", lawyerID: f.other, allowed: true},
		{name: "lawyer owns profile", user: "ada", lawyerID: f.owned, allowed: true},
		{name: "lawyer other profile", user: "ada", lawyerID: f.sameFirm, allowed: false},
		{name: "firm admin member lawyer", user: "firm", lawyerID: f.sameFirm, allowed: true},
		{name: "firm admin outside firm", user: "firm", lawyerID: f.other, allowed: false},
		{name: "lawyer role cannot act for firm", user: "lawyer-with-firm", lawyerID: f.owned, allowed: false},
		{name: "unknown user", user: "ghost", lawyerID: f.owned, allowed: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := f.svc.AuthorizeLawyerCoverage(ctx, tc.user, tc.lawyerID)
			if tc.allowed {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrForbidden)
		})
	}
}

func TestRoleChangeReplacesGrouping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.Authorize(ctx, "ada", ObjectPlan, ActionPlanView), ErrForbidden)

	require.NoError(t, f.db.Model(&Profile{}).Where("user_id = ?", "ada").Update("role", RoleSuperAdmin).Error)
	require.NoError(t, f.svc.Authorize(ctx, "ada", ObjectPlan, ActionPlanView))

	require.NoError(t, f.db.Model(&Profile{}).Where("user_id = ?", "ada").Update("role", RoleLawyer).Error)
	assert.ErrorIs(t, f.svc.Authorize(ctx, "ada", ObjectPlan, ActionPlanView), ErrForbidden)
}
