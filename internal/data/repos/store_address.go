package repos

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gestorbiz/gestor-backend/internal/domain"
	"github.com/gestorbiz/gestor-backend/internal/pkg/dbctx"
	"github.com/gestorbiz/gestor-backend/internal/platform/logger"
)

type StoreAddressRepo interface {
	Create(dbc dbctx.Context, addresses []*domain.StoreAddress) ([]*domain.StoreAddress, error)
	GetByStoreID(dbc dbctx.Context, storeID uuid.UUID) (*domain.StoreAddress, error)
	FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
	FullDeleteByStoreID(dbc dbctx.Context, storeID uuid.UUID) error
}

type storeAddressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStoreAddressRepo(db *gorm.DB, baseLog *logger.Logger) StoreAddressRepo {
	return &storeAddressRepo{db: db, log: baseLog.With("repo", "StoreAddressRepo")}
}

func (r *storeAddressRepo) Create(dbc dbctx.Context, addresses []*domain.StoreAddress) ([]*domain.StoreAddress, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(addresses) == 0 {
		return []*domain.StoreAddress{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&addresses).Error; err != nil {
		return nil, err
	}
	return addresses, nil
}

func (r *storeAddressRepo) GetByStoreID(dbc dbctx.Context, storeID uuid.UUID) (*domain.StoreAddress, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var address domain.StoreAddress
	err := transaction.WithContext(dbc.Ctx).Where("store_id = ?", storeID).First(&address).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &address, nil
}

func (r *storeAddressRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
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
		Delete(&domain.StoreAddress{}).Error
}

func (r *storeAddressRepo) FullDeleteByStoreID(dbc dbctx.Context, storeID uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Unscoped().
		Where("store_id = ?", storeID).
		Delete(&domain.StoreAddress{}).Error
}
