package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gestorbiz/gestor-backend/internal/domain"
	"github.com/gestorbiz/gestor-backend/internal/pkg/dbctx"
	"github.com/gestorbiz/gestor-backend/internal/platform/logger"
)

type SagaActionRepo interface {
	Create(dbc dbctx.Context, actions []*domain.SagaAction) ([]*domain.SagaAction, error)
	GetMaxSeq(dbc dbctx.Context, sagaID uuid.UUID) (int64, error)
	ListBySagaIDDesc(dbc dbctx.Context, sagaID uuid.UUID) ([]*domain.SagaAction, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, fields map[string]interface{}) error
	FullDeleteBySagaID(dbc dbctx.Context, sagaID uuid.UUID) error
}

type sagaActionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSagaActionRepo(db *gorm.DB, baseLog *logger.Logger) SagaActionRepo {
	return &sagaActionRepo{db: db, log: baseLog.With("repo", "SagaActionRepo")}
}

func (r *sagaActionRepo) Create(dbc dbctx.Context, actions []*domain.SagaAction) ([]*domain.SagaAction, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(actions) == 0 {
		return []*domain.SagaAction{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&actions).Error; err != nil {
		return nil, err
	}
	return actions, nil
}

func (r *sagaActionRepo) GetMaxSeq(dbc dbctx.Context, sagaID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var maxSeq *int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&domain.SagaAction{}).
		Where("saga_id = ?", sagaID).
		Select("MAX(seq)").
		Scan(&maxSeq).Error; err != nil {
		return 0, err
	}
	if maxSeq == nil {
		return 0, nil
	}
	return *maxSeq, nil
}

func (r *sagaActionRepo) ListBySagaIDDesc(dbc dbctx.Context, sagaID uuid.UUID) ([]*domain.SagaAction, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var actions []*domain.SagaAction
	if err := transaction.WithContext(dbc.Ctx).
		Where("saga_id = ?", sagaID).
		Order("seq DESC").
		Find(&actions).Error; err != nil {
		return nil, err
	}
	return actions, nil
}

func (r *sagaActionRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, fields map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&domain.SagaAction{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *sagaActionRepo) FullDeleteBySagaID(dbc dbctx.Context, sagaID uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Unscoped().
		Where("saga_id = ?", sagaID).
		Delete(&domain.SagaAction{}).Error
}
