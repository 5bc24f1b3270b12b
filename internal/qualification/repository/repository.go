// Package repository persists lead offers, their event log, conversation
// history, deliveries and scoring templates in PostgreSQL.
package repository

import (
	"errors"

	"converzia_backend/platform/db"
)

var (
	ErrNotFound         = errors.New("lead offer not found")
	ErrLeadNotFound     = errors.New("lead not found")
	ErrOfferNotFound    = errors.New("offer not found")
	ErrVersionConflict  = errors.New("lead offer was modified concurrently")
	ErrDuplicateMessage = errors.New("message already recorded")
)

type Repository struct {
	pool db.Pool
}

func New(pool db.Pool) *Repository {
	return &Repository{pool: pool}
}
