package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StoreContactKindEmail = "email"
	StoreContactKindPhone = "phone"
)

type Store struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TeamID uuid.UUID `gorm:"type:uuid;not null;index" json:"team_id"`
	Team   *Team     `gorm:"constraint:OnDelete:CASCADE;foreignKey:TeamID;references:ID" json:"team,omitempty"`

	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`

	LogoKey string `gorm:"column:logo_key" json:"logo_key,omitempty"`
	LogoURL string `gorm:"column:logo_url" json:"logo_url,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Store) TableName() string { return "stores" }

type StoreContact struct {
	ID      uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	StoreID uuid.UUID `gorm:"type:uuid;not null;index" json:"store_id"`
	Store   *Store    `gorm:"constraint:OnDelete:CASCADE;foreignKey:StoreID;references:ID" json:"store,omitempty"`

	Kind  string `gorm:"not null" json:"kind"`
	Value string `gorm:"not null" json:"value"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (StoreContact) TableName() string { return "store_contacts" }

type StoreAddress struct {
	ID      uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	StoreID uuid.UUID `gorm:"type:uuid;not null;index" json:"store_id"`
	Store   *Store    `gorm:"constraint:OnDelete:CASCADE;foreignKey:StoreID;references:ID" json:"store,omitempty"`

	Street  string `gorm:"not null" json:"street"`
	City    string `gorm:"not null" json:"city"`
	State   string `json:"state"`
	ZipCode string `gorm:"column:zip_code" json:"zip_code"`
	Country string `json:"country"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (StoreAddress) TableName() string { return "store_addresses" }
