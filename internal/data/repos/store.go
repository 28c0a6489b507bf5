package repos

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gestorbiz/gestor-backend/internal/domain"
	"github.com/gestorbiz/gestor-backend/internal/pkg/dbctx"
	"github.com/gestorbiz/gestor-backend/internal/platform/logger"
)

type StoreRepo interface {
	Create(dbc dbctx.Context, stores []*domain.Store) ([]*domain.Store, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Store, error)
	List(dbc dbctx.Context) ([]*domain.Store, error)
	ListByTeamID(dbc dbctx.Context, teamID uuid.UUID) ([]*domain.Store, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, fields map[string]interface{}) error
	FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
}

type storeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStoreRepo(db *gorm.DB, baseLog *logger.Logger) StoreRepo {
	return &storeRepo{db: db, log: baseLog.With("repo", "StoreRepo")}
}

func (r *storeRepo) Create(dbc dbctx.Context, stores []*domain.Store) ([]*domain.Store, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(stores) == 0 {
		return []*domain.Store{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&stores).Error; err != nil {
		return nil, err
	}
	return stores, nil
}

func (r *storeRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Store, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var store domain.Store
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).First(&store).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *storeRepo) List(dbc dbctx.Context) ([]*domain.Store, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var stores []*domain.Store
	if err := transaction.WithContext(dbc.Ctx).Find(&stores).Error; err != nil {
		return nil, err
	}
	return stores, nil
}

func (r *storeRepo) ListByTeamID(dbc dbctx.Context, teamID uuid.UUID) ([]*domain.Store, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var stores []*domain.Store
	if err := transaction.WithContext(dbc.Ctx).
		Where("team_id = ?", teamID).
		Find(&stores).Error; err != nil {
		return nil, err
	}
	return stores, nil
}

func (r *storeRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, fields map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&domain.Store{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *storeRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
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
		Delete(&domain.Store{}).Error
}
