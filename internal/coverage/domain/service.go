package domain

import (
	"context"
	"errors"

	marketdomain "github.com/smallbiznis/lawdirectory/internal/market/domain"
)

type Service interface {
	Resolve(ctx context.Context, zip string) (*Result, error)
	ResolveLocation(ctx context.Context, req marketdomain.LocationRequest) (*Result, error)
	ListFallback(ctx context.Context) ([]LawyerResponse, error)
	ListSubscriptionTypes(ctx context.Context) ([]SubscriptionTypeResponse, error)
	ListLawyerMarkets(ctx context.Context, lawyerID string) ([]LawyerMarketResponse, error)
	ReplaceCoverage(ctx context.Context, lawyerID string, areas []AreaInput) ([]LawyerMarketResponse, error)
}

const (
	FallbackMarketNotFound = "market_not_found"
	FallbackNoCoverage     = "no_coverage"
)

// Result is the coverage for one zip code or location. Market is nil when
// the input does not map to a market; the lawyers are then the fallback list.
// TierOrder lists the GroupedByTier keys in display order.
type Result struct {
	ZipCode           string                           `json:"zip_code,omitempty"`
	Location          *marketdomain.LocationResolution `json:"location,omitempty"`
	Market            *marketdomain.Response           `json:"dma"`
	Lawyers           []LawyerResponse                 `json:"lawyers"`
	GroupedByTier     map[Tier][]LawyerResponse        `json:"grouped_by_subscription"`
	TierOrder         []Tier                           `json:"tier_order"`
	SubscriptionTypes []SubscriptionTypeResponse       `json:"subscription_types"`
	FallbackReason    string                           `json:"fallback_reason,omitempty"`
}

type LawyerResponse struct {
	ID               string  `json:"id"`
	FirstName        string  `json:"first_name"`
	LastName         string  `json:"last_name"`
	Slug             string  `json:"slug"`
	OfficeZipCode    *string `json:"office_zip_code"`
	LawFirmID        *string `json:"law_firm_id"`
	SubscriptionType Tier    `json:"subscription_type"`
	EffectiveTier    Tier    `json:"effective_tier"`
}

type SubscriptionTypeResponse struct {
	ID          string `json:"id,omitempty"`
	Name        Tier   `json:"name"`
	DisplayName string `json:"display_name"`
	SortOrder   int    `json:"sort_order"`
}

type LawyerMarketResponse struct {
	MarketID         string `json:"dma_id"`
	Code             int    `json:"code"`
	Name             string `json:"name"`
	Slug             string `json:"slug"`
	SubscriptionType Tier   `json:"subscription_type"`
}

// AreaInput is one market in a lawyer's coverage set. An empty tier means free.
type AreaInput struct {
	MarketID         string `json:"dma_id"`
	SubscriptionType string `json:"subscription_type"`
}

var (
	ErrInvalidCity      = errors.New("invalid_city")
	ErrInvalidState     = errors.New("invalid_state")
	ErrInvalidLawyerID  = errors.New("invalid_lawyer_id")
	ErrInvalidMarketIDs = errors.New("invalid_dma_ids")
	ErrInvalidTier      = errors.New("invalid_subscription_type")
	ErrLawyerNotFound   = errors.New("lawyer_not_found")
)
