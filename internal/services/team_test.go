package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/gestorbiz/gestor-backend/internal/txn"
	"github.com/gestorbiz/gestor-backend/internal/validation"
)

func newTeamFixture(t *testing.T) (*opLog, *fakeTeamRepo, *fakeTeamMemberRepo, *fakeServiceTypeRepo, *fakeBucket, TeamService) {
	t.Helper()
	log := newTestLogger(t)
	ops := &opLog{}
	teams := newFakeTeamRepo(ops)
	members := newFakeTeamMemberRepo(ops)
	serviceTypes := newFakeServiceTypeRepo(ops)
	bucket := newFakeBucket()
	cache := NewEntityCache(log, nil, "")
	notifier := NewChangeNotifier(log, nil)
	coordinator := txn.NewCoordinator(log, nil)
	svc := NewTeamService(log, coordinator, teams, members, serviceTypes, bucket, notifier, cache)
	return ops, teams, members, serviceTypes, bucket, svc
}

func pngUpload() *FileUpload {
	return &FileUpload{
		Name:        "logo.png",
		ContentType: "image/png",
		Size:        128,
		Content:     []byte("png-bytes"),
	}
}

func TestCreateTeamSuccessRunsAllSteps(t *testing.T) {
	ops, teams, _, _, bucket, svc := newTeamFixture(t)

	team, err := svc.CreateTeam(context.Background(), uuid.New(), CreateTeamInput{
		Name:         "Oficina do Centro",
		Document:     "12345678000190",
		ServiceTypes: []string{"Repair", "Maintenance"},
		Logo:         pngUpload(),
	})
	if err != nil {
		t.Fatalf("CreateTeam: %v", err)
	}
	if team == nil || team.ID == uuid.Nil {
		t.Fatalf("CreateTeam: no team returned")
	}
	if team.LogoKey == "" || team.LogoURL == "" {
		t.Fatalf("CreateTeam: logo not patched: %+v", team)
	}

	want := []string{"team.create", "member.create", "serviceType.create", "team.update"}
	got := ops.all()
	if len(got) != len(want) {
		t.Fatalf("ops: want %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ops[%d]: want %q, got %q (all: %v)", i, want[i], got[i], got)
		}
	}
	if len(bucket.uploads) != 1 {
		t.Fatalf("expected 1 upload, got %d", len(bucket.uploads))
	}
	if len(bucket.deletes) != 0 {
		t.Fatalf("success must not delete objects, got %v", bucket.deletes)
	}
	if _, ok := teams.rows[team.ID]; !ok {
		t.Fatalf("team row missing after success")
	}
}

func TestCreateTeamWithoutLogoSkipsAssetSteps(t *testing.T) {
	ops, _, _, _, bucket, svc := newTeamFixture(t)

	team, err := svc.CreateTeam(context.Background(), uuid.New(), CreateTeamInput{
		Name:         "Padaria Sul",
		ServiceTypes: []string{"Delivery"},
	})
	if err != nil {
		t.Fatalf("CreateTeam: %v", err)
	}
	if team.LogoKey != "" || team.LogoURL != "" {
		t.Fatalf("no logo expected, got %+v", team)
	}
	if len(bucket.uploads) != 0 || len(bucket.deletes) != 0 {
		t.Fatalf("no storage calls expected, uploads=%v deletes=%v", bucket.uploads, bucket.deletes)
	}
	for _, op := range ops.all() {
		if op == "team.update" {
			t.Fatalf("no patch step expected without a logo, ops=%v", ops.all())
		}
	}
}

func TestCreateTeamUploadFailureCompensatesInReverseOrder(t *testing.T) {
	ops, teams, members, serviceTypes, bucket, svc := newTeamFixture(t)
	bucket.failKeyed["upload"] = errors.New("bucket unavailable")

	_, err := svc.CreateTeam(context.Background(), uuid.New(), CreateTeamInput{
		Name:         "Oficina do Centro",
		ServiceTypes: []string{"Repair"},
		Logo:         pngUpload(),
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	var stepErr *txn.StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("expected *txn.StepError, got %T: %v", err, err)
	}
	if stepErr.Step != "upload_logo" {
		t.Fatalf("StepError should name upload_logo, got %q", stepErr.Step)
	}

	got := ops.all()
	want := []string{
		"team.create", "member.create", "serviceType.create",
		"serviceType.deleteByTeam", "member.delete", "team.delete",
	}
	if len(got) != len(want) {
		t.Fatalf("ops: want %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ops[%d]: want %q, got %q (all: %v)", i, want[i], got[i], got)
		}
	}
	if len(teams.rows) != 0 || len(members.rows) != 0 || len(serviceTypes.rows) != 0 {
		t.Fatalf("compensation left rows behind")
	}
}

func TestCreateTeamServiceTypeInsertFailureCompensatesEarlierRows(t *testing.T) {
	ops, teams, members, serviceTypes, bucket, svc := newTeamFixture(t)
	serviceTypes.failOn = "create"

	_, err := svc.CreateTeam(context.Background(), uuid.New(), CreateTeamInput{
		Name:         "Oficina do Centro",
		ServiceTypes: []string{"Repair"},
		Logo:         pngUpload(),
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	var stepErr *txn.StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("expected *txn.StepError, got %T: %v", err, err)
	}
	if stepErr.Step != "insert_service_types" {
		t.Fatalf("StepError should name insert_service_types, got %q", stepErr.Step)
	}

	got := ops.all()
	want := []string{"team.create", "member.create", "member.delete", "team.delete"}
	if len(got) != len(want) {
		t.Fatalf("ops: want %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ops[%d]: want %q, got %q (all: %v)", i, want[i], got[i], got)
		}
	}
	if len(teams.rows) != 0 || len(members.rows) != 0 {
		t.Fatalf("compensation left rows behind")
	}
	if len(bucket.uploads) != 0 {
		t.Fatalf("upload must never run before dependent inserts succeed")
	}
}

func TestCreateTeamPatchFailureDeletesUploadedLogo(t *testing.T) {
	log := newTestLogger(t)
	opsLog := &opLog{}
	teamRepo := newFakeTeamRepo(opsLog)
	teamRepo.failOn = "update"
	memberRepo := newFakeTeamMemberRepo(opsLog)
	typeRepo := newFakeServiceTypeRepo(opsLog)
	bkt := newFakeBucket()
	svc := NewTeamService(log, txn.NewCoordinator(log, nil), teamRepo, memberRepo, typeRepo, bkt, NewChangeNotifier(log, nil), NewEntityCache(log, nil, ""))

	_, err := svc.CreateTeam(context.Background(), uuid.New(), CreateTeamInput{
		Name: "Oficina do Centro",
		Logo: pngUpload(),
	})
	var stepErr *txn.StepError
	if !errors.As(err, &stepErr) || stepErr.Step != "patch_logo" {
		t.Fatalf("expected StepError at patch_logo, got %v", err)
	}
	if len(bkt.uploads) != 1 || len(bkt.deletes) != 1 {
		t.Fatalf("uploaded object must be deleted during compensation: uploads=%v deletes=%v", bkt.uploads, bkt.deletes)
	}
	if bkt.deletes[0] != bkt.uploads[0] {
		t.Fatalf("compensation deleted wrong key: uploaded=%q deleted=%q", bkt.uploads[0], bkt.deletes[0])
	}
	if len(teamRepo.rows) != 0 {
		t.Fatalf("team row should be compensated away")
	}
}

func TestCreateTeamValidationFailureWritesNothing(t *testing.T) {
	ops, _, _, _, bucket, svc := newTeamFixture(t)

	_, err := svc.CreateTeam(context.Background(), uuid.New(), CreateTeamInput{Name: "ab"})
	var vErr *validation.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected *validation.ValidationError, got %T: %v", err, err)
	}
	if len(ops.all()) != 0 || len(bucket.uploads) != 0 {
		t.Fatalf("validation failure must not write anything: ops=%v uploads=%v", ops.all(), bucket.uploads)
	}

	// Bad file type is caught before any write too.
	_, err = svc.CreateTeam(context.Background(), uuid.New(), CreateTeamInput{
		Name: "Oficina do Centro",
		Logo: &FileUpload{Name: "virus.exe", ContentType: "application/octet-stream", Size: 10},
	})
	var fErr *validation.FileConstraintError
	if !errors.As(err, &fErr) {
		t.Fatalf("expected *validation.FileConstraintError, got %T: %v", err, err)
	}
	if len(ops.all()) != 0 {
		t.Fatalf("file constraint failure must not write anything: ops=%v", ops.all())
	}
}

func TestCreateTeamLogoKeyIsNamespacedByTeam(t *testing.T) {
	_, _, _, _, bucket, svc := newTeamFixture(t)

	team, err := svc.CreateTeam(context.Background(), uuid.New(), CreateTeamInput{
		Name: "Oficina do Centro",
		Logo: pngUpload(),
	})
	if err != nil {
		t.Fatalf("CreateTeam: %v", err)
	}
	if len(bucket.uploads) != 1 {
		t.Fatalf("expected 1 upload, got %d", len(bucket.uploads))
	}
	key := bucket.uploads[0]
	if !strings.HasPrefix(key, "team_logo/"+team.ID.String()+"/") {
		t.Fatalf("logo key %q not namespaced under team id", key)
	}
	if !strings.HasSuffix(key, ".png") {
		t.Fatalf("logo key %q should carry the png extension", key)
	}
}
