package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lawdirectory/internal/market/domain"
	obsmetrics "github.com/smallbiznis/lawdirectory/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Repo    domain.Repository
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    domain.Repository
	metrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("market.service"),
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

func (s *Service) ResolveZip(ctx context.Context, zip string) (*domain.Resolution, error) {
	normalized, err := domain.NormalizeZip(zip)
	if err != nil {
		return nil, err
	}

	market, err := s.repo.FindByZip(ctx, s.db, normalized)
	if err != nil {
		return nil, err
	}
	if market == nil {
		s.log.Debug("zip code not mapped to a market", zap.String("zip_code", normalized))
		s.metrics.RecordMarketResolution(ctx, "unmapped")
		return &domain.Resolution{ZipCode: normalized, ZipCodes: []string{}}, nil
	}

	zips, err := s.repo.ListZipCodes(ctx, s.db, market.ID)
	if err != nil {
		return nil, err
	}
	if zips == nil {
		zips = []string{}
	}

	s.metrics.RecordMarketResolution(ctx, "resolved")
	resp := toResponse(market)
	return &domain.Resolution{
		ZipCode:  normalized,
		Market:   &resp,
		ZipCodes: zips,
	}, nil
}

// ResolveState matches a 2-letter abbreviation first, then an exact name,
// then a name substring. Nil means nothing matched.
func (s *Service) ResolveState(ctx context.Context, query string) (*domain.StateResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrInvalidQuery
	}

	state, err := s.resolveState(ctx, query)
	if err != nil || state == nil {
		return nil, err
	}
	resp := toStateResponse(state)
	return &resp, nil
}

func (s *Service) resolveState(ctx context.Context, query string) (*domain.State, error) {
	if len(query) == 2 {
		state, err := s.repo.FindStateByAbbreviation(ctx, s.db, query)
		if err != nil || state != nil {
			return state, err
		}
	}

	state, err := s.repo.FindStateByName(ctx, s.db, query)
	if err != nil || state != nil {
		return state, err
	}

	return s.repo.SearchState(ctx, s.db, query)
}

func (s *Service) ResolveLocation(ctx context.Context, req domain.LocationRequest) (*domain.LocationResolution, error) {
	cityQuery := strings.TrimSpace(req.City)
	stateQuery := strings.TrimSpace(req.State)
	if cityQuery == "" && stateQuery == "" {
		return nil, domain.ErrInvalidQuery
	}

	out := &domain.LocationResolution{}

	var stateID *snowflake.ID
	if stateQuery != "" {
		state, err := s.resolveState(ctx, stateQuery)
		if err != nil {
			return nil, err
		}
		if state == nil {
			return out, nil
		}
		resp := toStateResponse(state)
		out.State = &resp
		stateID = &state.ID
	}

	if cityQuery == "" {
		// State only: the market of the state's lowest mapped zip.
		market, err := s.repo.FindByState(ctx, s.db, *stateID)
		if err != nil {
			return nil, err
		}
		if market != nil {
			resp := toResponse(market)
			out.Market = &resp
		}
		return out, nil
	}

	city, err := s.repo.FindCityByName(ctx, s.db, cityQuery, stateID)
	if err != nil {
		return nil, err
	}
	if city == nil {
		city, err = s.repo.SearchCity(ctx, s.db, cityQuery, stateID)
		if err != nil {
			return nil, err
		}
	}
	if city == nil {
		return out, nil
	}
	out.City = &domain.CityResponse{ID: city.ID.String(), Name: city.Name}

	market, err := s.repo.FindByCity(ctx, s.db, city.ID)
	if err != nil {
		return nil, err
	}
	if market != nil {
		resp := toResponse(market)
		out.Market = &resp
	}
	return out, nil
}

func (s *Service) SuggestZipCodes(ctx context.Context, prefix string) ([]domain.ZipSuggestion, error) {
	prefix = strings.TrimSpace(prefix)
	if len(prefix) < domain.SuggestionMinLength {
		return []domain.ZipSuggestion{}, nil
	}

	items, err := s.repo.SuggestZipCodes(ctx, s.db, prefix, domain.SuggestionLimit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.ZipSuggestion{}
	}
	return items, nil
}

func (s *Service) GetMarket(ctx context.Context, id string) (*domain.Response, error) {
	marketID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	market, err := s.repo.FindByID(ctx, s.db, marketID)
	if err != nil {
		return nil, err
	}
	if market == nil {
		return nil, domain.ErrNotFound
	}

	resp := toResponse(market)
	return &resp, nil
}

func (s *Service) ListMarkets(ctx context.Context) ([]domain.Response, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) MemberZipCodes(ctx context.Context, id string) ([]string, error) {
	marketID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	market, err := s.repo.FindByID(ctx, s.db, marketID)
	if err != nil {
		return nil, err
	}
	if market == nil {
		return nil, domain.ErrNotFound
	}

	zips, err := s.repo.ListZipCodes(ctx, s.db, marketID)
	if err != nil {
		return nil, err
	}
	if zips == nil {
		zips = []string{}
	}
	return zips, nil
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func toResponse(m *domain.Market) domain.Response {
	return domain.Response{
		ID:   m.ID.String(),
		Code: m.Code,
		Name: m.Name,
		Slug: m.Slug,
	}
}

func toStateResponse(s *domain.State) domain.StateResponse {
	return domain.StateResponse{
		ID:           s.ID.String(),
		Name:         s.Name,
		Abbreviation: s.Abbreviation,
	}
}
