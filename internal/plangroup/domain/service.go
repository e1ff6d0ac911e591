package domain

import (
	"context"
	"errors"

	plandomain "github.com/smallbiznis/lawdirectory/internal/plan/domain"
)

type Service interface {
	CreateGroup(ctx context.Context, req CreateGroupRequest) (*GroupResponse, error)
	UpdateGroup(ctx context.Context, id string, req UpdateGroupRequest) (*GroupResponse, error)
	GetGroup(ctx context.Context, id string) (*GroupResponse, error)
	ListGroups(ctx context.Context) ([]GroupResponse, error)
	DeleteGroup(ctx context.Context, id string) error

	AssignMarkets(ctx context.Context, groupID string, marketIDs []string) (*AssignmentResult, error)
	SetMarketsGlobal(ctx context.Context, marketIDs []string) (*AssignmentResult, error)
	ApplyAssignment(ctx context.Context, req AssignmentRequest) (*AssignmentResult, error)
	RemoveMarkets(ctx context.Context, groupID string, marketIDs []string) (*AssignmentResult, error)
	ListGroupMarkets(ctx context.Context, groupID string) ([]MarketRef, error)
	ListAssignments(ctx context.Context) ([]AssignmentResponse, error)

	UpsertOverride(ctx context.Context, groupID string, req OverrideRequest) (*OverrideResponse, error)
	DeleteOverride(ctx context.Context, groupID, planID string) error
	ListOverrides(ctx context.Context, groupID string) ([]OverrideResponse, error)

	DeleteMarketExceptions(ctx context.Context, marketIDs []string) (int64, error)
}

type CreateGroupRequest struct {
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	SortOrder   int      `json:"sort_order"`
	MarketIDs   []string `json:"dma_ids"`
}

// UpdateGroupRequest patches the non-nil fields.
type UpdateGroupRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
	SortOrder   *int    `json:"sort_order"`
}

type AssignmentRequest struct {
	MarketIDs  []string `json:"dma_ids"`
	TargetType string   `json:"target_type"`
	TargetID   string   `json:"target_id"`
}

type AssignmentResult struct {
	Updated    int    `json:"updated"`
	TargetType string `json:"target_type"`
	GroupID    string `json:"group_id,omitempty"`
}

// OverrideRequest replaces the override row for one plan. Features is only
// applied when HasCustomFeatures is true and the list was supplied.
type OverrideRequest struct {
	PlanID            string                    `json:"plan_id"`
	PriceDisplay      *string                   `json:"price_display"`
	Description       *string                   `json:"description"`
	HasCustomFeatures *bool                     `json:"has_custom_features"`
	Features          []plandomain.FeatureInput `json:"features"`
}

type GroupResponse struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description *string            `json:"description"`
	SortOrder   int                `json:"sort_order"`
	IsActive    bool               `json:"is_active"`
	Markets     []MarketRef        `json:"dmas"`
	MarketCount int                `json:"dma_count"`
	Overrides   []OverrideResponse `json:"overrides"`
}

type MarketRef struct {
	ID   string `json:"id"`
	Code int    `json:"code"`
	Name string `json:"name"`
}

type PlanRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

type OverrideResponse struct {
	ID                string                       `json:"id"`
	GroupID           string                       `json:"group_id"`
	PlanID            string                       `json:"plan_id"`
	Plan              *PlanRef                     `json:"plan"`
	PriceCents        *int64                       `json:"price_cents"`
	PriceDisplay      *string                      `json:"price_display"`
	Description       *string                      `json:"description"`
	HasCustomFeatures bool                         `json:"has_custom_features"`
	IsActive          bool                         `json:"is_active"`
	Features          []plandomain.FeatureResponse `json:"features"`
}

type AssignmentResponse struct {
	ID             string  `json:"id"`
	Code           int     `json:"code"`
	Name           string  `json:"name"`
	AssignmentType string  `json:"assignment_type"`
	GroupID        *string `json:"group_id"`
	GroupName      *string `json:"group_name"`
}

const (
	AssignmentGlobal = "global"
	AssignmentGroup  = "group"
)

var (
	ErrInvalidGroupID    = errors.New("invalid_group_id")
	ErrInvalidPlanID     = errors.New("invalid_plan_id")
	ErrInvalidMarketIDs  = errors.New("invalid_dma_ids")
	ErrInvalidTargetType = errors.New("invalid_target_type")
	ErrInvalidName       = errors.New("invalid_name")
	ErrGroupNotFound     = errors.New("group_not_found")
	ErrPlanNotFound      = errors.New("plan_not_found")
	ErrOverrideNotFound  = errors.New("override_not_found")
)
