package domain

import (
	"context"
	"errors"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*PlanResponse, error)
	List(ctx context.Context) ([]PlanResponse, error)
	ListActive(ctx context.Context) ([]PlanWithFeatures, error)
	Get(ctx context.Context, id string) (*PlanResponse, error)
	ReplaceFeatures(ctx context.Context, planID string, features []FeatureInput) ([]FeatureResponse, error)
	AddFeature(ctx context.Context, planID string, feature FeatureInput) (*FeatureResponse, error)
}

type CreateRequest struct {
	Name          string  `json:"name"`
	DisplayName   string  `json:"display_name"`
	PriceCents    int64   `json:"price_cents"`
	PriceDisplay  string  `json:"price_display"`
	BillingPeriod string  `json:"billing_period"`
	Description   *string `json:"description"`
	IsRecommended bool    `json:"is_recommended"`
	SortOrder     int     `json:"sort_order"`
}

type PlanResponse struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	DisplayName   string            `json:"display_name"`
	PriceCents    int64             `json:"price_cents"`
	PriceDisplay  string            `json:"price_display"`
	BillingPeriod string            `json:"billing_period"`
	Description   *string           `json:"description"`
	IsRecommended bool              `json:"is_recommended"`
	SortOrder     int               `json:"sort_order"`
	IsActive      bool              `json:"is_active"`
	Features      []FeatureResponse `json:"features"`
}

const (
	DefaultPriceDisplay  = "$0"
	DefaultBillingPeriod = "month"
)

var (
	ErrInvalidID          = errors.New("invalid_plan_id")
	ErrInvalidName        = errors.New("invalid_name")
	ErrInvalidFeatureName = errors.New("invalid_feature_name")
	ErrNotFound           = errors.New("plan_not_found")
)
