package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gestorbiz/gestor-backend/internal/domain"
	"github.com/gestorbiz/gestor-backend/internal/pkg/dbctx"
	"github.com/gestorbiz/gestor-backend/internal/platform/logger"
)

type ServiceClientRepo interface {
	Create(dbc dbctx.Context, clients []*domain.ServiceClient) ([]*domain.ServiceClient, error)
	GetByServiceID(dbc dbctx.Context, serviceID uuid.UUID) ([]*domain.ServiceClient, error)
	FullDeleteByServiceID(dbc dbctx.Context, serviceID uuid.UUID) error
}

type serviceClientRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewServiceClientRepo(db *gorm.DB, baseLog *logger.Logger) ServiceClientRepo {
	return &serviceClientRepo{db: db, log: baseLog.With("repo", "ServiceClientRepo")}
}

func (r *serviceClientRepo) Create(dbc dbctx.Context, clients []*domain.ServiceClient) ([]*domain.ServiceClient, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(clients) == 0 {
		return []*domain.ServiceClient{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}

func (r *serviceClientRepo) GetByServiceID(dbc dbctx.Context, serviceID uuid.UUID) ([]*domain.ServiceClient, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var clients []*domain.ServiceClient
	if err := transaction.WithContext(dbc.Ctx).
		Where("service_id = ?", serviceID).
		Find(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}

func (r *serviceClientRepo) FullDeleteByServiceID(dbc dbctx.Context, serviceID uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Unscoped().
		Where("service_id = ?", serviceID).
		Delete(&domain.ServiceClient{}).Error
}
