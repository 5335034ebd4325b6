package server

import (
	"github.com/vanshika/chronos/internal/domain"
	"github.com/vanshika/chronos/internal/generator"
	"github.com/vanshika/chronos/internal/service"
)

type timelineResponse struct {
	Status            string             `json:"status"`
	Data              []generator.Record `json:"data"`
	Summary           service.Summary    `json:"summary"`
	Stats             domain.Stats       `json:"stats"`
	TotalTransactions int                `json:"total_transactions"`
}

type patternsResponse struct {
	Status   string                  `json:"status"`
	Patterns []domain.PatternSummary `json:"patterns"`
}

type searchResponse struct {
	Status string             `json:"status"`
	Data   []generator.Record `json:"data"`
	Total  int                `json:"total"`
}

type patternResponse struct {
	Status  string         `json:"status"`
	Data    domain.Pattern `json:"data"`
	Message string         `json:"message,omitempty"`
}

type ingestResponse struct {
	Status   string `json:"status"`
	Ingested int    `json:"ingested"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
