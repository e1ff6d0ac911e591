package domain

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

type Service interface {
	ResolveZip(ctx context.Context, zip string) (*Resolution, error)
	ResolveState(ctx context.Context, query string) (*StateResponse, error)
	ResolveLocation(ctx context.Context, req LocationRequest) (*LocationResolution, error)
	SuggestZipCodes(ctx context.Context, prefix string) ([]ZipSuggestion, error)
	GetMarket(ctx context.Context, id string) (*Response, error)
	ListMarkets(ctx context.Context) ([]Response, error)
	MemberZipCodes(ctx context.Context, id string) ([]string, error)
}

// Resolution is the outcome of a zip lookup. Market is nil when the zip is
// absent from the table or not mapped to any market.
type Resolution struct {
	ZipCode  string    `json:"zip_code"`
	Market   *Response `json:"market"`
	ZipCodes []string  `json:"zip_codes"`
}

type LocationRequest struct {
	City  string `json:"city"`
	State string `json:"state"`
}

type LocationResolution struct {
	State  *StateResponse `json:"state"`
	City   *CityResponse  `json:"city"`
	Market *Response      `json:"market"`
}

type Response struct {
	ID   string `json:"id"`
	Code int    `json:"code"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type StateResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
}

type CityResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

const (
	SuggestionMinLength = 2
	SuggestionLimit     = 10
)

var (
	ErrInvalidZipCode = errors.New("invalid_zip_code")
	ErrInvalidID      = errors.New("invalid_id")
	ErrInvalidQuery   = errors.New("invalid_query")
	ErrNotFound       = errors.New("not_found")
)

var zipPattern = regexp.MustCompile(`^\d{5}(-\d{4})?$`)

// NormalizeZip validates a 5-digit or ZIP+4 code and returns its 5-digit prefix.
func NormalizeZip(raw string) (string, error) {
	zip := strings.TrimSpace(raw)
	if !zipPattern.MatchString(zip) {
		return "", ErrInvalidZipCode
	}
	return zip[:5], nil
}
