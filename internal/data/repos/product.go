package repos

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gestorbiz/gestor-backend/internal/domain"
	"github.com/gestorbiz/gestor-backend/internal/pkg/dbctx"
	"github.com/gestorbiz/gestor-backend/internal/platform/logger"
)

type ProductRepo interface {
	Create(dbc dbctx.Context, products []*domain.Product) ([]*domain.Product, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Product, error)
	List(dbc dbctx.Context) ([]*domain.Product, error)
	ListByTeamID(dbc dbctx.Context, teamID uuid.UUID) ([]*domain.Product, error)
	ListByStoreID(dbc dbctx.Context, storeID uuid.UUID) ([]*domain.Product, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, fields map[string]interface{}) error
	FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
}

type productRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProductRepo(db *gorm.DB, baseLog *logger.Logger) ProductRepo {
	return &productRepo{db: db, log: baseLog.With("repo", "ProductRepo")}
}

func (r *productRepo) Create(dbc dbctx.Context, products []*domain.Product) ([]*domain.Product, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(products) == 0 {
		return []*domain.Product{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Product, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var product domain.Product
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) List(dbc dbctx.Context) ([]*domain.Product, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var products []*domain.Product
	if err := transaction.WithContext(dbc.Ctx).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepo) ListByTeamID(dbc dbctx.Context, teamID uuid.UUID) ([]*domain.Product, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var products []*domain.Product
	if err := transaction.WithContext(dbc.Ctx).
		Where("team_id = ?", teamID).
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepo) ListByStoreID(dbc dbctx.Context, storeID uuid.UUID) ([]*domain.Product, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var products []*domain.Product
	if err := transaction.WithContext(dbc.Ctx).
		Where("store_id = ?", storeID).
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, fields map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&domain.Product{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *productRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
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
		Delete(&domain.Product{}).Error
}
