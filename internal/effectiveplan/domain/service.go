package domain

import (
	"context"
	"errors"
)

type Service interface {
	GetEffectivePlans(ctx context.Context, marketID string) (*Result, error)
}

type Result struct {
	MarketID       string          `json:"dma_id"`
	Plans          []EffectivePlan `json:"plans"`
	AssignmentType string          `json:"assignment_type"`
	GroupInfo      *GroupInfo      `json:"group_info"`
	HasOverrides   bool            `json:"has_overrides"`
}

type GroupInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

const (
	AssignmentGlobal = "global"
	AssignmentGroup  = "group"
)

var ErrInvalidMarketID = errors.New("invalid_dma_id")
