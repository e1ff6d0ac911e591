package authorization

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

const (
	RoleSuperAdmin = "super_admin"
	RoleLawyer     = "lawyer"
	RoleFirmAdmin  = "firm_admin"
)

const (
	ObjectPlan           = "subscription_plan"
	ObjectPlanGroup      = "plan_group"
	ObjectAssignment     = "dma_assignment"
	ObjectLawyerCoverage = "lawyer_coverage"
)

const (
	ActionPlanView   = "subscription_plan.view"
	ActionPlanManage = "subscription_plan.manage"

	ActionGroupView   = "plan_group.view"
	ActionGroupManage = "plan_group.manage"

	ActionAssignmentView   = "dma_assignment.view"
	ActionAssignmentManage = "dma_assignment.manage"

	ActionCoverageManageAny  = "lawyer_coverage.manage_any"
	ActionCoverageManageOwn  = "lawyer_coverage.manage_own"
	ActionCoverageManageFirm = "lawyer_coverage.manage_firm"
)

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)

// Profile carries the ownership facts for an authenticated user.
type Profile struct {
	ID        snowflake.ID  `gorm:"primaryKey"`
	UserID    string        `gorm:"column:user_id;type:text;not null;uniqueIndex:ux_profiles_user"`
	Role      string        `gorm:"column:role;type:text;not null"`
	LawyerID  *snowflake.ID `gorm:"column:lawyer_id"`
	LawFirmID *snowflake.ID `gorm:"column:law_firm_id"`
}

func (Profile) TableName() string { return "profiles" }

type Service interface {
	// Authorize checks a role capability for the user behind userID.
	Authorize(ctx context.Context, userID string, object string, action string) error
	// AuthorizeLawyerCoverage allows super admins, the lawyer's own user, and
	// the admin of the lawyer's firm.
	AuthorizeLawyerCoverage(ctx context.Context, userID string, lawyerID snowflake.ID) error
}
