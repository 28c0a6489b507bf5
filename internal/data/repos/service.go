package repos

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gestorbiz/gestor-backend/internal/domain"
	"github.com/gestorbiz/gestor-backend/internal/pkg/dbctx"
	"github.com/gestorbiz/gestor-backend/internal/platform/logger"
)

type ServiceRepo interface {
	Create(dbc dbctx.Context, services []*domain.Service) ([]*domain.Service, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Service, error)
	List(dbc dbctx.Context) ([]*domain.Service, error)
	ListByTeamID(dbc dbctx.Context, teamID uuid.UUID) ([]*domain.Service, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, fields map[string]interface{}) error
	FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
}

type serviceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewServiceRepo(db *gorm.DB, baseLog *logger.Logger) ServiceRepo {
	return &serviceRepo{db: db, log: baseLog.With("repo", "ServiceRepo")}
}

func (r *serviceRepo) Create(dbc dbctx.Context, services []*domain.Service) ([]*domain.Service, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(services) == 0 {
		return []*domain.Service{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&services).Error; err != nil {
		return nil, err
	}
	return services, nil
}

func (r *serviceRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Service, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var service domain.Service
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).First(&service).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &service, nil
}

func (r *serviceRepo) List(dbc dbctx.Context) ([]*domain.Service, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var services []*domain.Service
	if err := transaction.WithContext(dbc.Ctx).Find(&services).Error; err != nil {
		return nil, err
	}
	return services, nil
}

func (r *serviceRepo) ListByTeamID(dbc dbctx.Context, teamID uuid.UUID) ([]*domain.Service, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var services []*domain.Service
	if err := transaction.WithContext(dbc.Ctx).
		Where("team_id = ?", teamID).
		Find(&services).Error; err != nil {
		return nil, err
	}
	return services, nil
}

func (r *serviceRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, fields map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&domain.Service{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *serviceRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Unscoped().
		Where("id IN ?", ids).
		Delete(&domain.Service{}).Error
}
