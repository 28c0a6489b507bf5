package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gestorbiz/gestor-backend/internal/domain"
	"github.com/gestorbiz/gestor-backend/internal/pkg/dbctx"
	"github.com/gestorbiz/gestor-backend/internal/platform/logger"
)

type TeamServiceTypeRepo interface {
	Create(dbc dbctx.Context, types []*domain.TeamServiceType) ([]*domain.TeamServiceType, error)
	GetByTeamID(dbc dbctx.Context, teamID uuid.UUID) ([]*domain.TeamServiceType, error)
	FullDeleteByTeamID(dbc dbctx.Context, teamID uuid.UUID) error
}

type teamServiceTypeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTeamServiceTypeRepo(db *gorm.DB, baseLog *logger.Logger) TeamServiceTypeRepo {
	return &teamServiceTypeRepo{db: db, log: baseLog.With("repo", "TeamServiceTypeRepo")}
}

func (r *teamServiceTypeRepo) Create(dbc dbctx.Context, types []*domain.TeamServiceType) ([]*domain.TeamServiceType, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(types) == 0 {
		return []*domain.TeamServiceType{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&types).Error; err != nil {
		return nil, err
	}
	return types, nil
}

func (r *teamServiceTypeRepo) GetByTeamID(dbc dbctx.Context, teamID uuid.UUID) ([]*domain.TeamServiceType, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var types []*domain.TeamServiceType
	if err := transaction.WithContext(dbc.Ctx).
		Where("team_id = ?", teamID).
		Find(&types).Error; err != nil {
		return nil, err
	}
	return types, nil
}

func (r *teamServiceTypeRepo) FullDeleteByTeamID(dbc dbctx.Context, teamID uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Unscoped().
		Where("team_id = ?", teamID).
		Delete(&domain.TeamServiceType{}).Error
}
