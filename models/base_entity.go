// Package models contains domain entities and persistence models for the counter service
package models

import (
	"time"

	"github.com/amirphl/counter-clean-arch/utils"
)

// BaseEntity carries the identity and timestamps shared by every entity.
// Equality is by id only.
type BaseEntity struct {
	id        string
	createdAt time.Time
	updatedAt time.Time
}

// NewBaseEntity builds a BaseEntity; missing timestamps default to now
func NewBaseEntity(id string, createdAt, updatedAt *time.Time) BaseEntity {
	now := utils.UTCNow()
	e := BaseEntity{id: id, createdAt: now, updatedAt: now}
	if createdAt != nil {
		e.createdAt = *createdAt
	}
	if updatedAt != nil {
		e.updatedAt = *updatedAt
	}
	return e
}

func (e BaseEntity) ID() string { return e.id }

func (e BaseEntity) CreatedAt() time.Time { return e.createdAt }

func (e BaseEntity) UpdatedAt() time.Time { return e.updatedAt }

// Equals reports whether both entities share the same id
func (e BaseEntity) Equals(other BaseEntity) bool {
	return e.id == other.id
}

// touched returns a copy with updatedAt set to now
func (e BaseEntity) touched() BaseEntity {
	e.updatedAt = utils.UTCNow()
	return e
}
