package services

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gestorbiz/gestor-backend/internal/data/repos"
	types "github.com/gestorbiz/gestor-backend/internal/domain"
	"github.com/gestorbiz/gestor-backend/internal/pkg/dbctx"
	"github.com/gestorbiz/gestor-backend/internal/platform/apierr"
	"github.com/gestorbiz/gestor-backend/internal/platform/logger"
	"github.com/gestorbiz/gestor-backend/internal/platform/storage"
	"github.com/gestorbiz/gestor-backend/internal/realtime"
	"github.com/gestorbiz/gestor-backend/internal/txn"
	"github.com/gestorbiz/gestor-backend/internal/validation"
)

type CreateTeamInput struct {
	Name         string
	Document     string
	Location     string
	ServiceTypes []string
	Logo         *FileUpload
}

type UpdateTeamInput struct {
	Name     *string
	Document *string
	Location *string
}

type TeamService interface {
	CreateTeam(ctx context.Context, ownerUserID uuid.UUID, input CreateTeamInput) (*types.Team, error)
	GetTeam(ctx context.Context, id uuid.UUID) (*types.Team, error)
	ListTeams(ctx context.Context, memberUserID uuid.UUID) ([]*types.Team, error)
	UpdateTeam(ctx context.Context, id uuid.UUID, input UpdateTeamInput) (*types.Team, error)
	DeleteTeam(ctx context.Context, id uuid.UUID) error
	RequireMember(ctx context.Context, teamID, userID uuid.UUID) error
}

type teamService struct {
	log          *logger.Logger
	coordinator  *txn.Coordinator
	teams        repos.TeamRepo
	members      repos.TeamMemberRepo
	serviceTypes repos.TeamServiceTypeRepo
	bucket       storage.ObjectStore
	notifier     ChangeNotifier
	cache        *EntityCache
}

func NewTeamService(
	baseLog *logger.Logger,
	coordinator *txn.Coordinator,
	teams repos.TeamRepo,
	members repos.TeamMemberRepo,
	serviceTypes repos.TeamServiceTypeRepo,
	bucket storage.ObjectStore,
	notifier ChangeNotifier,
	cache *EntityCache,
) TeamService {
	return &teamService{
		log:          baseLog.With("service", "TeamService"),
		coordinator:  coordinator,
		teams:        teams,
		members:      members,
		serviceTypes: serviceTypes,
		bucket:       bucket,
		notifier:     notifier,
		cache:        cache,
	}
}

// CreateTeam runs the team creation flow: insert the team row, its admin
// membership and its service type reference list, then conditionally upload
// the logo and patch the team with its key and URL. Validation runs entirely
// before the first write; any step failure compensates the earlier steps in
// reverse order and surfaces a single StepError.
func (s *teamService) CreateTeam(ctx context.Context, ownerUserID uuid.UUID, input CreateTeamInput) (*types.Team, error) {
	if ownerUserID == uuid.Nil {
		return nil, fmt.Errorf("owner user required")
	}

	input.Name = strings.TrimSpace(input.Name)
	if err := validation.MinLen("name", input.Name, 3); err != nil {
		return nil, err
	}
	for i, st := range input.ServiceTypes {
		input.ServiceTypes[i] = strings.TrimSpace(st)
		if err := validation.Required("service_types", input.ServiceTypes[i]); err != nil {
			return nil, err
		}
	}
	logoExt, err := checkUpload(input.Logo)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	team := &types.Team{
		ID:          uuid.New(),
		OwnerUserID: ownerUserID,
		Name:        input.Name,
		Document:    strings.TrimSpace(input.Document),
		Location:    strings.TrimSpace(input.Location),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	member := &types.TeamMember{
		ID:     uuid.New(),
		TeamID: team.ID,
		UserID: ownerUserID,
		Role:   types.TeamRoleAdmin,
	}
	typeRows := make([]*types.TeamServiceType, 0, len(input.ServiceTypes))
	for _, name := range input.ServiceTypes {
		typeRows = append(typeRows, &types.TeamServiceType{
			ID:     uuid.New(),
			TeamID: team.ID,
			Name:   name,
		})
	}

	steps := []txn.Step{
		{
			Name: "insert_team",
			Run: func(ctx context.Context, tc *txn.Context) error {
				_, err := s.teams.Create(dbctx.Context{Ctx: ctx}, []*types.Team{team})
				return err
			},
			Compensate: func(ctx context.Context, tc *txn.Context) error {
				return s.teams.FullDeleteByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{team.ID})
			},
			Undo: &txn.UndoRecord{
				Kind:    UndoKindDBDeleteRows,
				Payload: map[string]any{"table": "teams", "ids": uuidStrings(team.ID)},
			},
		},
		{
			Name: "insert_member",
			Run: func(ctx context.Context, tc *txn.Context) error {
				_, err := s.members.Create(dbctx.Context{Ctx: ctx}, []*types.TeamMember{member})
				return err
			},
			Compensate: func(ctx context.Context, tc *txn.Context) error {
				return s.members.FullDeleteByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{member.ID})
			},
			Undo: &txn.UndoRecord{
				Kind:    UndoKindDBDeleteRows,
				Payload: map[string]any{"table": "team_members", "ids": uuidStrings(member.ID)},
			},
		},
	}

	if len(typeRows) > 0 {
		steps = append(steps, txn.Step{
			Name: "insert_service_types",
			Run: func(ctx context.Context, tc *txn.Context) error {
				_, err := s.serviceTypes.Create(dbctx.Context{Ctx: ctx}, typeRows)
				return err
			},
			// Batch insert may apply partially, so undo by parent id.
			Compensate: func(ctx context.Context, tc *txn.Context) error {
				return s.serviceTypes.FullDeleteByTeamID(dbctx.Context{Ctx: ctx}, team.ID)
			},
			Undo: &txn.UndoRecord{
				Kind:    UndoKindDBDeleteByParent,
				Payload: map[string]any{"table": "team_service_types", "fk": "team_id", "parent_id": team.ID.String()},
			},
		})
	}

	if input.Logo != nil {
		logoKey := objectKey("team_logo", team.ID, logoExt)
		steps = append(steps,
			txn.Step{
				Name: "upload_logo",
				Run: func(ctx context.Context, tc *txn.Context) error {
					if err := s.bucket.Upload(ctx, storage.CategoryLogo, logoKey, input.Logo.ContentType, bytes.NewReader(input.Logo.Content)); err != nil {
						return err
					}
					tc.Set("logo_key", logoKey)
					tc.Set("logo_url", s.bucket.PublicURL(storage.CategoryLogo, logoKey))
					return nil
				},
				Compensate: func(ctx context.Context, tc *txn.Context) error {
					return s.bucket.Delete(ctx, storage.CategoryLogo, logoKey)
				},
				Undo: &txn.UndoRecord{
					Kind:    UndoKindStorageDeleteKey,
					Payload: map[string]any{"category": string(storage.CategoryLogo), "key": logoKey},
				},
			},
			txn.Step{
				Name: "patch_logo",
				Run: func(ctx context.Context, tc *txn.Context) error {
					team.LogoKey = tc.String("logo_key")
					team.LogoURL = tc.String("logo_url")
					return s.teams.UpdateFields(dbctx.Context{Ctx: ctx}, team.ID, map[string]interface{}{
						"logo_key": team.LogoKey,
						"logo_url": team.LogoURL,
					})
				},
				// Undone by insert_team's row delete.
			},
		)
	}

	if _, err := s.coordinator.Execute(ctx, "create_team", ownerUserID, steps); err != nil {
		return nil, err
	}

	applyOptimistic(s.cache, realtime.EntityTeam, team.ID, team, team.UpdatedAt)
	if s.notifier != nil {
		s.notifier.RowInserted(team.ID, realtime.EntityTeam, team.ID, team)
	}
	return team, nil
}

func (s *teamService) GetTeam(ctx context.Context, id uuid.UUID) (*types.Team, error) {
	return s.teams.GetByID(dbctx.Context{Ctx: ctx}, id)
}

func (s *teamService) ListTeams(ctx context.Context, memberUserID uuid.UUID) ([]*types.Team, error) {
	return s.teams.ListByMemberUserID(dbctx.Context{Ctx: ctx}, memberUserID)
}

func (s *teamService) UpdateTeam(ctx context.Context, id uuid.UUID, input UpdateTeamInput) (*types.Team, error) {
	fields := map[string]interface{}{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if err := validation.MinLen("name", name, 3); err != nil {
			return nil, err
		}
		fields["name"] = name
	}
	if input.Document != nil {
		fields["document"] = strings.TrimSpace(*input.Document)
	}
	if input.Location != nil {
		fields["location"] = strings.TrimSpace(*input.Location)
	}
	if len(fields) == 0 {
		return s.teams.GetByID(dbctx.Context{Ctx: ctx}, id)
	}
	fields["updated_at"] = time.Now().UTC()

	if err := s.teams.UpdateFields(dbctx.Context{Ctx: ctx}, id, fields); err != nil {
		return nil, err
	}
	team, err := s.teams.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, fmt.Errorf("team not found")
	}

	applyOptimistic(s.cache, realtime.EntityTeam, team.ID, team, team.UpdatedAt)
	if s.notifier != nil {
		s.notifier.RowUpdated(team.ID, realtime.EntityTeam, team.ID, team)
	}
	return team, nil
}

// DeleteTeam removes the team, its dependents and its stored logo. Dependent
// rows go first so a partial failure leaves no orphans pointing at a missing
// parent.
func (s *teamService) DeleteTeam(ctx context.Context, id uuid.UUID) error {
	team, err := s.teams.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return err
	}
	if team == nil {
		return nil
	}

	if err := s.serviceTypes.FullDeleteByTeamID(dbctx.Context{Ctx: ctx}, id); err != nil {
		return err
	}
	if err := s.members.FullDeleteByTeamID(dbctx.Context{Ctx: ctx}, id); err != nil {
		return err
	}
	if err := s.teams.FullDeleteByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{id}); err != nil {
		return err
	}

	if key := strings.TrimSpace(team.LogoKey); key != "" {
		if err := s.bucket.Delete(ctx, storage.CategoryLogo, key); err != nil {
			s.log.Warn("failed to delete team logo (ignored)", "team_id", id.String(), "key", key, "error", err)
		}
	}

	if s.cache != nil {
		s.cache.Remove(realtime.EntityTeam, id)
	}
	if s.notifier != nil {
		s.notifier.RowDeleted(id, realtime.EntityTeam, id)
	}
	return nil
}

// RequireMember gates team-scoped operations on membership.
func (s *teamService) RequireMember(ctx context.Context, teamID, userID uuid.UUID) error {
	ok, err := s.members.Exists(dbctx.Context{Ctx: ctx}, teamID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apierr.New(http.StatusForbidden, "not_team_member",
			fmt.Errorf("user %s is not a member of team %s", userID, teamID))
	}
	return nil
}
