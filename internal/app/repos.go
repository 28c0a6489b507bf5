package app

import (
	"gorm.io/gorm"

	"github.com/gestorbiz/gestor-backend/internal/data/repos"
	"github.com/gestorbiz/gestor-backend/internal/platform/logger"
)

type Repos struct {
	User      repos.UserRepo
	UserToken repos.UserTokenRepo

	Team            repos.TeamRepo
	TeamMember      repos.TeamMemberRepo
	TeamServiceType repos.TeamServiceTypeRepo

	Service       repos.ServiceRepo
	ServiceClient repos.ServiceClientRepo

	Store        repos.StoreRepo
	StoreContact repos.StoreContactRepo
	StoreAddress repos.StoreAddressRepo

	Product           repos.ProductRepo
	ProductIdentifier repos.ProductIdentifierRepo

	SagaRun    repos.SagaRunRepo
	SagaAction repos.SagaActionRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:      repos.NewUserRepo(db, log),
		UserToken: repos.NewUserTokenRepo(db, log),

		Team:            repos.NewTeamRepo(db, log),
		TeamMember:      repos.NewTeamMemberRepo(db, log),
		TeamServiceType: repos.NewTeamServiceTypeRepo(db, log),

		Service:       repos.NewServiceRepo(db, log),
		ServiceClient: repos.NewServiceClientRepo(db, log),

		Store:        repos.NewStoreRepo(db, log),
		StoreContact: repos.NewStoreContactRepo(db, log),
		StoreAddress: repos.NewStoreAddressRepo(db, log),

		Product:           repos.NewProductRepo(db, log),
		ProductIdentifier: repos.NewProductIdentifierRepo(db, log),

		SagaRun:    repos.NewSagaRunRepo(db, log),
		SagaAction: repos.NewSagaActionRepo(db, log),
	}
}
