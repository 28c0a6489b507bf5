package repos

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gestorbiz/gestor-backend/internal/domain"
	"github.com/gestorbiz/gestor-backend/internal/pkg/dbctx"
	"github.com/gestorbiz/gestor-backend/internal/platform/logger"
)

type TeamRepo interface {
	Create(dbc dbctx.Context, teams []*domain.Team) ([]*domain.Team, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Team, error)
	List(dbc dbctx.Context) ([]*domain.Team, error)
	ListByMemberUserID(dbc dbctx.Context, userID uuid.UUID) ([]*domain.Team, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, fields map[string]interface{}) error
	FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
}

type teamRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTeamRepo(db *gorm.DB, baseLog *logger.Logger) TeamRepo {
	return &teamRepo{db: db, log: baseLog.With("repo", "TeamRepo")}
}

func (r *teamRepo) Create(dbc dbctx.Context, teams []*domain.Team) ([]*domain.Team, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(teams) == 0 {
		return []*domain.Team{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&teams).Error; err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *teamRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Team, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var team domain.Team
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).First(&team).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *teamRepo) List(dbc dbctx.Context) ([]*domain.Team, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var teams []*domain.Team
	if err := transaction.WithContext(dbc.Ctx).Find(&teams).Error; err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *teamRepo) ListByMemberUserID(dbc dbctx.Context, userID uuid.UUID) ([]*domain.Team, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var teams []*domain.Team
	if err := transaction.WithContext(dbc.Ctx).
		Joins("JOIN team_members ON team_members.team_id = teams.id").
		Where("team_members.user_id = ?", userID).
		Find(&teams).Error; err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *teamRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, fields map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&domain.Team{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *teamRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
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
		Delete(&domain.Team{}).Error
}
