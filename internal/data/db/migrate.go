package db

import (
	"gorm.io/gorm"

	types "github.com/gestorbiz/gestor-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(

		// Identity + auth
		&types.User{},
		&types.UserToken{},

		// Teams
		&types.Team{},
		&types.TeamMember{},
		&types.TeamServiceType{},

		// Services
		&types.Service{},
		&types.ServiceClient{},

		// Stores
		&types.Store{},
		&types.StoreContact{},
		&types.StoreAddress{},

		// Products
		&types.Product{},
		&types.ProductIdentifier{},

		// Transaction journal
		&types.SagaRun{},
		&types.SagaAction{},
	)
}
