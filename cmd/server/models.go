package main

import (
	"time"

	"github.com/liamcoop/ruleseditor/decisiontable"
)

// API response models. Request bodies for /validate and /save are a
// decisiontable.DecisionTable; their responses a decisiontable.ValidationResult.

// ErrorResponse is the body of every error response
type ErrorResponse struct {
	Error   string `json:"error" example:"rules not found"`
	Details string `json:"details,omitempty" example:"table not found: DiscountRules"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string           `json:"status" example:"healthy"`
	Store    string           `json:"store" example:"file"`
	Tables   int              `json:"tables" example:"1"`
	Error    string           `json:"error,omitempty"`
	Counters map[string]int64 `json:"counters,omitempty"`
}

// TableSummary describes one registered table
type TableSummary struct {
	Name    string `json:"name" example:"DiscountRules"`
	Default bool   `json:"default" example:"true"`
}

// TablesListResponse represents the response for listing tables
type TablesListResponse struct {
	Tables []TableSummary `json:"tables"`
}

// RevisionResponse represents one saved version of a table
type RevisionResponse struct {
	ID        string                       `json:"id" example:"123e4567-e89b-12d3-a456-426614174000"`
	Table     string                       `json:"table" example:"DiscountRules"`
	Rows      int                          `json:"rows" example:"12"`
	CreatedAt time.Time                    `json:"createdAt" example:"2024-01-15T10:30:00Z"`
	Document  *decisiontable.DecisionTable `json:"document,omitempty"`
}

// RevisionsListResponse represents the response for listing revisions
type RevisionsListResponse struct {
	Revisions []RevisionResponse `json:"revisions"`
}
