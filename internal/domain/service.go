package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ServiceStatusOpen       = "open"
	ServiceStatusInProgress = "in_progress"
	ServiceStatusDone       = "done"
)

// Service is a unit of work a team renders to a client (a repair order, a job).
type Service struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TeamID uuid.UUID `gorm:"type:uuid;not null;index" json:"team_id"`
	Team   *Team     `gorm:"constraint:OnDelete:CASCADE;foreignKey:TeamID;references:ID" json:"team,omitempty"`

	TypeID uuid.UUID        `gorm:"type:uuid;not null;index" json:"type_id"`
	Type   *TeamServiceType `gorm:"foreignKey:TypeID;references:ID" json:"type,omitempty"`

	Name        string  `gorm:"not null" json:"name"`
	Description string  `gorm:"not null" json:"description"`
	Price       float64 `gorm:"not null;default:0" json:"price"`
	Status      string  `gorm:"not null;default:'open'" json:"status"`

	AttachmentKey string `gorm:"column:attachment_key" json:"attachment_key,omitempty"`
	AttachmentURL string `gorm:"column:attachment_url" json:"attachment_url,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Service) TableName() string { return "services" }

type ServiceClient struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ServiceID uuid.UUID `gorm:"type:uuid;not null;index" json:"service_id"`
	Service   *Service  `gorm:"constraint:OnDelete:CASCADE;foreignKey:ServiceID;references:ID" json:"service,omitempty"`

	Name  string `gorm:"not null" json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (ServiceClient) TableName() string { return "service_clients" }
