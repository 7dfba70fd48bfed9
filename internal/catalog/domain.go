// Package catalog serves the public business directory and the owner-side
// product management, including per-item batch operations.
package catalog

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrBusinessNotFound is returned when no active business matches.
	ErrBusinessNotFound = errors.New("catalog: business not found")
	// ErrProductNotFound is returned when a product does not exist for the business.
	ErrProductNotFound = errors.New("catalog: product not found")
	// ErrUnknownAction is returned for unsupported batch actions.
	ErrUnknownAction = errors.New("catalog: unknown batch action")
	// ErrEmptyBatch is returned when a batch names no items.
	ErrEmptyBatch = errors.New("catalog: batch has no items")
	// ErrNotConfigured is returned when an optional collaborator is missing.
	ErrNotConfigured = errors.New("catalog: not configured")
)

// Business is a directory listing.
type Business struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	City        string    `json:"city"`
	LogoPath    string    `json:"logo_path"`
	Active      bool      `json:"active"`
}

// Product is an item sold by a business.
type Product struct {
	ID          uuid.UUID       `json:"id"`
	BusinessID  uuid.UUID       `json:"business_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImagePath   string          `json:"image_path"`
	Active      bool            `json:"active"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// BusinessDetail is a business with its active products.
type BusinessDetail struct {
	Business
	Products []Product `json:"products"`
}

// ListFilter narrows the directory listing. Empty fields match everything.
type ListFilter struct {
	Category string
	City     string
	Limit    int
}

// Action names a batch operation.
type Action string

const (
	ActionDelete      Action = "delete"
	ActionActivate    Action = "activate"
	ActionDeactivate  Action = "deactivate"
	ActionUploadImage Action = "upload_image"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionDelete, ActionActivate, ActionDeactivate, ActionUploadImage:
		return true
	}
	return false
}

// Outcome is the per-item result of a batch.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

// ItemResult records what happened to one item of a batch.
type ItemResult struct {
	ID      uuid.UUID `json:"id"`
	Outcome Outcome   `json:"outcome"`
	Error   string    `json:"error,omitempty"`
}

// BatchReport accumulates item results in submission order.
type BatchReport struct {
	Action     Action       `json:"action"`
	BusinessID uuid.UUID    `json:"business_id"`
	Items      []ItemResult `json:"items"`
	Succeeded  int          `json:"succeeded"`
	FailedN    int          `json:"failed"`
	Skipped    int          `json:"skipped"`
}

func (r *BatchReport) record(item ItemResult) {
	r.Items = append(r.Items, item)
	switch item.Outcome {
	case OutcomeSucceeded:
		r.Succeeded++
	case OutcomeFailed:
		r.FailedN++
	case OutcomeSkipped:
		r.Skipped++
	}
}

// Failed returns the ids that failed so the caller can retry just those.
func (r BatchReport) Failed() []uuid.UUID {
	var ids []uuid.UUID
	for _, it := range r.Items {
		if it.Outcome == OutcomeFailed {
			ids = append(ids, it.ID)
		}
	}
	return ids
}

// Complete reports whether every item succeeded or was skipped.
func (r BatchReport) Complete() bool { return r.FailedN == 0 }

// Progress receives the completed percentage after each item.
type Progress func(percent int)

// ImageItem pairs a product with the image bytes to attach to it.
type ImageItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Filename  string    `json:"filename"`
	Data      []byte    `json:"data"`
}
