package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SagaRun is the journal row for one multi-step creation flow. SagaActions hold
// the undo records appended before each write step; a stale "running" row means
// the process died mid-chain and the reconciliation sweep picks it up.
type SagaRun struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	OwnerUserID uuid.UUID `gorm:"type:uuid;index" json:"owner_user_id"`
	Status      string    `gorm:"not null;index" json:"status"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (SagaRun) TableName() string { return "saga_runs" }

const (
	SagaStatusRunning     = "running"
	SagaStatusSucceeded   = "succeeded"
	SagaStatusCompensated = "compensated"
)

const (
	SagaActionPending = "pending"
	SagaActionDone    = "done"
	SagaActionSkipped = "skipped"
)

type SagaAction struct {
	ID      uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SagaID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"saga_id"`
	Saga    *SagaRun       `gorm:"constraint:OnDelete:CASCADE;foreignKey:SagaID;references:ID" json:"saga,omitempty"`
	Seq     int64          `gorm:"not null" json:"seq"`
	Step    string         `gorm:"not null" json:"step"`
	Kind    string         `gorm:"not null" json:"kind"`
	Payload datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	Status  string         `gorm:"not null" json:"status"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (SagaAction) TableName() string { return "saga_actions" }
