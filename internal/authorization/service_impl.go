package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, userID string, object string, action string) error {
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, _, err := s.resolveActor(ctx, userID)
	if err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.denied(subject, object, action)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) AuthorizeLawyerCoverage(ctx context.Context, userID string, lawyerID snowflake.ID) error {
	if lawyerID <= 0 {
		return ErrInvalidObject
	}

	subject, profile, err := s.resolveActor(ctx, userID)
	if err != nil {
		return err
	}

	if ok, err := s.enforcer.Enforce(subject, ObjectLawyerCoverage, ActionCoverageManageAny); err != nil {
		return err
	} else if ok {
		return nil
	}

	if profile.LawyerID != nil && *profile.LawyerID == lawyerID {
		ok, err := s.enforcer.Enforce(subject, ObjectLawyerCoverage, ActionCoverageManageOwn)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}

	if profile.LawFirmID != nil {
		ok, err := s.enforcer.Enforce(subject, ObjectLawyerCoverage, ActionCoverageManageFirm)
		if err != nil {
			return err
		}
		if ok {
			firmID, err := s.lawyerFirm(ctx, lawyerID)
			if err != nil {
				return err
			}
			if firmID != nil && *firmID == *profile.LawFirmID {
				return nil
			}
		}
	}

	s.denied(subject, ObjectLawyerCoverage, lawyerID.String())
	return ErrForbidden
}

// resolveActor loads the user's profile and keeps the subject's casbin role
// link in step with the stored role.
func (s *ServiceImpl) resolveActor(ctx context.Context, userID string) (string, *Profile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", nil, ErrInvalidActor
	}

	profile, err := s.profileForUser(ctx, userID)
	if err != nil {
		return "", nil, err
	}
	if profile == nil || strings.TrimSpace(profile.Role) == "" {
		return "", nil, ErrForbidden
	}

	subject := fmt.Sprintf("user:%s", userID)
	roleName := fmt.Sprintf("role:%s", strings.ToLower(strings.TrimSpace(profile.Role)))
	if err := s.ensureGrouping(subject, roleName); err != nil {
		return "", nil, err
	}
	return subject, profile, nil
}

func (s *ServiceImpl) profileForUser(ctx context.Context, userID string) (*Profile, error) {
	var rows []Profile
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (s *ServiceImpl) lawyerFirm(ctx context.Context, lawyerID snowflake.ID) (*snowflake.ID, error) {
	var rows []struct {
		LawFirmID *snowflake.ID `gorm:"column:law_firm_id"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT law_firm_id
		 FROM lawyers
		 WHERE id = ?
		 LIMIT 1`,
		lawyerID,
	).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].LawFirmID, nil
}

func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func (s *ServiceImpl) denied(subject string, object string, action string) {
	s.log.Info("authorization denied",
		zap.String("subject", subject),
		zap.String("object", object),
		zap.String("action", action),
	)
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Super admin manages the catalog, groups and coverage of any lawyer
		{"role:super_admin", ObjectPlan, ActionPlanView},
		{"role:super_admin", ObjectPlan, ActionPlanManage},
		{"role:super_admin", ObjectPlanGroup, ActionGroupView},
		{"role:super_admin", ObjectPlanGroup, ActionGroupManage},
		{"role:super_admin", ObjectAssignment, ActionAssignmentView},
		{"role:super_admin", ObjectAssignment, ActionAssignmentManage},
		{"role:super_admin", ObjectLawyerCoverage, ActionCoverageManageAny},

		{"role:lawyer", ObjectLawyerCoverage, ActionCoverageManageOwn},

		{"role:firm_admin", ObjectLawyerCoverage, ActionCoverageManageOwn},
		{"role:firm_admin", ObjectLawyerCoverage, ActionCoverageManageFirm},
	}

	for _, policy := range policies {
		if len(policy) < 3 {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
