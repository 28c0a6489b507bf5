package repos

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gestorbiz/gestor-backend/internal/domain"
	"github.com/gestorbiz/gestor-backend/internal/pkg/dbctx"
	"github.com/gestorbiz/gestor-backend/internal/platform/logger"
)

type SagaRunRepo interface {
	Create(dbc dbctx.Context, runs []*domain.SagaRun) ([]*domain.SagaRun, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.SagaRun, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*domain.SagaRun, error)
	ListStaleRunning(dbc dbctx.Context, olderThan time.Time) ([]*domain.SagaRun, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, fields map[string]interface{}) error
	FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
}

type sagaRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSagaRunRepo(db *gorm.DB, baseLog *logger.Logger) SagaRunRepo {
	return &sagaRunRepo{db: db, log: baseLog.With("repo", "SagaRunRepo")}
}

func (r *sagaRunRepo) Create(dbc dbctx.Context, runs []*domain.SagaRun) ([]*domain.SagaRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(runs) == 0 {
		return []*domain.SagaRun{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *sagaRunRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.SagaRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var run domain.SagaRun
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// LockByID takes a row lock so concurrent appenders serialize on the run.
func (r *sagaRunRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*domain.SagaRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var run domain.SagaRun
	err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *sagaRunRepo) ListStaleRunning(dbc dbctx.Context, olderThan time.Time) ([]*domain.SagaRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var runs []*domain.SagaRun
	if err := transaction.WithContext(dbc.Ctx).
		Where("status = ? AND updated_at < ?", domain.SagaStatusRunning, olderThan).
		Order("updated_at ASC").
		Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *sagaRunRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, fields map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&domain.SagaRun{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *sagaRunRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
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
		Delete(&domain.SagaRun{}).Error
}
