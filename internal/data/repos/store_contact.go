package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gestorbiz/gestor-backend/internal/domain"
	"github.com/gestorbiz/gestor-backend/internal/pkg/dbctx"
	"github.com/gestorbiz/gestor-backend/internal/platform/logger"
)

type StoreContactRepo interface {
	Create(dbc dbctx.Context, contacts []*domain.StoreContact) ([]*domain.StoreContact, error)
	GetByStoreID(dbc dbctx.Context, storeID uuid.UUID) ([]*domain.StoreContact, error)
	FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
	FullDeleteByStoreID(dbc dbctx.Context, storeID uuid.UUID) error
}

type storeContactRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStoreContactRepo(db *gorm.DB, baseLog *logger.Logger) StoreContactRepo {
	return &storeContactRepo{db: db, log: baseLog.With("repo", "StoreContactRepo")}
}

func (r *storeContactRepo) Create(dbc dbctx.Context, contacts []*domain.StoreContact) ([]*domain.StoreContact, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(contacts) == 0 {
		return []*domain.StoreContact{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&contacts).Error; err != nil {
		return nil, err
	}
	return contacts, nil
}

func (r *storeContactRepo) GetByStoreID(dbc dbctx.Context, storeID uuid.UUID) ([]*domain.StoreContact, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var contacts []*domain.StoreContact
	if err := transaction.WithContext(dbc.Ctx).
		Where("store_id = ?", storeID).
		Find(&contacts).Error; err != nil {
		return nil, err
	}
	return contacts, nil
}

func (r *storeContactRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
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
		Delete(&domain.StoreContact{}).Error
}

func (r *storeContactRepo) FullDeleteByStoreID(dbc dbctx.Context, storeID uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Unscoped().
		Where("store_id = ?", storeID).
		Delete(&domain.StoreContact{}).Error
}
