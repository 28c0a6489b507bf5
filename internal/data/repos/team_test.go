package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/gestorbiz/gestor-backend/internal/data/repos/testutil"
	types "github.com/gestorbiz/gestor-backend/internal/domain"
	"github.com/gestorbiz/gestor-backend/internal/pkg/dbctx"
)

func TestTeamRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	userRepo := NewUserRepo(db, testutil.Logger(t))
	teamRepo := NewTeamRepo(db, testutil.Logger(t))
	memberRepo := NewTeamMemberRepo(db, testutil.Logger(t))

	users, err := userRepo.Create(dbc, []*types.User{
		{ID: uuid.New(), Email: "teamrepo@example.com", Password: "pw", FirstName: "Ana", LastName: "Lima"},
	})
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}
	owner := users[0]

	created, err := teamRepo.Create(dbc, []*types.Team{
		{ID: uuid.New(), OwnerUserID: owner.ID, Name: "Barbearia Central", Document: "12345678000190", Location: "Recife"},
	})
	if err != nil {
		t.Fatalf("Create team: %v", err)
	}
	team := created[0]

	got, err := teamRepo.GetByID(dbc, team.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || got.ID != team.ID {
		t.Fatalf("GetByID: unexpected result: %+v", got)
	}

	missing, err := teamRepo.GetByID(dbc, uuid.New())
	if err != nil {
		t.Fatalf("GetByID (missing): %v", err)
	}
	if missing != nil {
		t.Fatalf("GetByID (missing): expected nil, got %+v", missing)
	}

	if _, err := memberRepo.Create(dbc, []*types.TeamMember{
		{ID: uuid.New(), TeamID: team.ID, UserID: owner.ID, Role: types.TeamRoleAdmin},
	}); err != nil {
		t.Fatalf("Create member: %v", err)
	}

	byMember, err := teamRepo.ListByMemberUserID(dbc, owner.ID)
	if err != nil {
		t.Fatalf("ListByMemberUserID: %v", err)
	}
	if len(byMember) != 1 || byMember[0].ID != team.ID {
		t.Fatalf("ListByMemberUserID: unexpected result: %+v", byMember)
	}

	if err := teamRepo.UpdateFields(dbc, team.ID, map[string]interface{}{"name": "Barbearia Nova"}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	got, err = teamRepo.GetByID(dbc, team.ID)
	if err != nil {
		t.Fatalf("GetByID after update: %v", err)
	}
	if got.Name != "Barbearia Nova" {
		t.Fatalf("UpdateFields: name not updated: %q", got.Name)
	}

	if err := teamRepo.FullDeleteByIDs(dbc, []uuid.UUID{team.ID}); err != nil {
		t.Fatalf("FullDeleteByIDs: %v", err)
	}
	got, err = teamRepo.GetByID(dbc, team.ID)
	if err != nil {
		t.Fatalf("GetByID after delete: %v", err)
	}
	if got != nil {
		t.Fatalf("FullDeleteByIDs: team still present")
	}

	// FullDeleteByIDs is a no-op on already-deleted rows.
	if err := teamRepo.FullDeleteByIDs(dbc, []uuid.UUID{team.ID}); err != nil {
		t.Fatalf("FullDeleteByIDs (repeat): %v", err)
	}
}

func TestSagaActionRepoSeq(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	runRepo := NewSagaRunRepo(db, testutil.Logger(t))
	actionRepo := NewSagaActionRepo(db, testutil.Logger(t))

	runs, err := runRepo.Create(dbc, []*types.SagaRun{
		{ID: uuid.New(), Name: "create_team", OwnerUserID: uuid.New(), Status: types.SagaStatusRunning},
	})
	if err != nil {
		t.Fatalf("Create run: %v", err)
	}
	run := runs[0]

	maxSeq, err := actionRepo.GetMaxSeq(dbc, run.ID)
	if err != nil {
		t.Fatalf("GetMaxSeq (empty): %v", err)
	}
	if maxSeq != 0 {
		t.Fatalf("GetMaxSeq (empty): expected 0, got %d", maxSeq)
	}

	for i, step := range []string{"insert_team", "insert_member", "upload_logo"} {
		if _, err := actionRepo.Create(dbc, []*types.SagaAction{
			{ID: uuid.New(), SagaID: run.ID, Seq: int64(i + 1), Step: step, Kind: "db_delete_rows", Status: types.SagaActionPending},
		}); err != nil {
			t.Fatalf("Create action %q: %v", step, err)
		}
	}

	maxSeq, err = actionRepo.GetMaxSeq(dbc, run.ID)
	if err != nil {
		t.Fatalf("GetMaxSeq: %v", err)
	}
	if maxSeq != 3 {
		t.Fatalf("GetMaxSeq: expected 3, got %d", maxSeq)
	}

	actions, err := actionRepo.ListBySagaIDDesc(dbc, run.ID)
	if err != nil {
		t.Fatalf("ListBySagaIDDesc: %v", err)
	}
	if len(actions) != 3 {
		t.Fatalf("ListBySagaIDDesc: expected 3 actions, got %d", len(actions))
	}
	for i, want := range []int64{3, 2, 1} {
		if actions[i].Seq != want {
			t.Fatalf("ListBySagaIDDesc: position %d has seq %d, want %d", i, actions[i].Seq, want)
		}
	}
}
