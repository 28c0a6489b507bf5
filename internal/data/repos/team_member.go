package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gestorbiz/gestor-backend/internal/domain"
	"github.com/gestorbiz/gestor-backend/internal/pkg/dbctx"
	"github.com/gestorbiz/gestor-backend/internal/platform/logger"
)

type TeamMemberRepo interface {
	Create(dbc dbctx.Context, members []*domain.TeamMember) ([]*domain.TeamMember, error)
	GetByTeamID(dbc dbctx.Context, teamID uuid.UUID) ([]*domain.TeamMember, error)
	Exists(dbc dbctx.Context, teamID, userID uuid.UUID) (bool, error)
	FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
	FullDeleteByTeamID(dbc dbctx.Context, teamID uuid.UUID) error
}

type teamMemberRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTeamMemberRepo(db *gorm.DB, baseLog *logger.Logger) TeamMemberRepo {
	return &teamMemberRepo{db: db, log: baseLog.With("repo", "TeamMemberRepo")}
}

func (r *teamMemberRepo) Create(dbc dbctx.Context, members []*domain.TeamMember) ([]*domain.TeamMember, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(members) == 0 {
		return []*domain.TeamMember{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (r *teamMemberRepo) GetByTeamID(dbc dbctx.Context, teamID uuid.UUID) ([]*domain.TeamMember, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var members []*domain.TeamMember
	if err := transaction.WithContext(dbc.Ctx).
		Where("team_id = ?", teamID).
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (r *teamMemberRepo) Exists(dbc dbctx.Context, teamID, userID uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&domain.TeamMember{}).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *teamMemberRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
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
		Delete(&domain.TeamMember{}).Error
}

func (r *teamMemberRepo) FullDeleteByTeamID(dbc dbctx.Context, teamID uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Unscoped().
		Where("team_id = ?", teamID).
		Delete(&domain.TeamMember{}).Error
}
