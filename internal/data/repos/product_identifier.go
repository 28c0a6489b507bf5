package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gestorbiz/gestor-backend/internal/domain"
	"github.com/gestorbiz/gestor-backend/internal/pkg/dbctx"
	"github.com/gestorbiz/gestor-backend/internal/platform/logger"
)

type ProductIdentifierRepo interface {
	Create(dbc dbctx.Context, identifiers []*domain.ProductIdentifier) ([]*domain.ProductIdentifier, error)
	GetByProductID(dbc dbctx.Context, productID uuid.UUID) ([]*domain.ProductIdentifier, error)
	ExistsKindValue(dbc dbctx.Context, kind, value string) (bool, error)
	FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
	FullDeleteByProductID(dbc dbctx.Context, productID uuid.UUID) error
}

type productIdentifierRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProductIdentifierRepo(db *gorm.DB, baseLog *logger.Logger) ProductIdentifierRepo {
	return &productIdentifierRepo{db: db, log: baseLog.With("repo", "ProductIdentifierRepo")}
}

func (r *productIdentifierRepo) Create(dbc dbctx.Context, identifiers []*domain.ProductIdentifier) ([]*domain.ProductIdentifier, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(identifiers) == 0 {
		return []*domain.ProductIdentifier{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&identifiers).Error; err != nil {
		return nil, err
	}
	return identifiers, nil
}

func (r *productIdentifierRepo) GetByProductID(dbc dbctx.Context, productID uuid.UUID) ([]*domain.ProductIdentifier, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var identifiers []*domain.ProductIdentifier
	if err := transaction.WithContext(dbc.Ctx).
		Where("product_id = ?", productID).
		Find(&identifiers).Error; err != nil {
		return nil, err
	}
	return identifiers, nil
}

func (r *productIdentifierRepo) ExistsKindValue(dbc dbctx.Context, kind, value string) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&domain.ProductIdentifier{}).
		Where("kind = ? AND value = ?", kind, value).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *productIdentifierRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
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
		Delete(&domain.ProductIdentifier{}).Error
}

func (r *productIdentifierRepo) FullDeleteByProductID(dbc dbctx.Context, productID uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Unscoped().
		Where("product_id = ?", productID).
		Delete(&domain.ProductIdentifier{}).Error
}
