package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/gestorbiz/gestor-backend/internal/data/repos"
	types "github.com/gestorbiz/gestor-backend/internal/domain"
	"github.com/gestorbiz/gestor-backend/internal/pkg/dbctx"
	"github.com/gestorbiz/gestor-backend/internal/platform/logger"
	"github.com/gestorbiz/gestor-backend/internal/platform/storage"
	"github.com/gestorbiz/gestor-backend/internal/txn"
)

// Undo record kinds persisted in saga_actions. Each replay must be idempotent:
// row deletes target explicit ids, object deletes treat missing keys as done.
const (
	UndoKindDBDeleteRows     = "db_delete_rows"
	UndoKindDBDeleteByParent = "db_delete_by_parent"
	UndoKindStorageDeleteKey = "storage_delete_key"
)

// deletableTables guards the raw DELETE statements executed during replay so a
// corrupted payload can never name an arbitrary table.
var deletableTables = map[string]bool{
	"teams":               true,
	"team_members":        true,
	"team_service_types":  true,
	"services":            true,
	"service_clients":     true,
	"stores":              true,
	"store_contacts":      true,
	"store_addresses":     true,
	"products":            true,
	"product_identifiers": true,
}

// SagaService persists undo records for creation flows and replays them when a
// flow dies before its in-memory compensation could run. It implements
// txn.Journal for the coordinator side.
type SagaService interface {
	txn.Journal
	Compensate(ctx context.Context, sagaID uuid.UUID) error
	ReconcileStale(ctx context.Context, olderThan time.Duration) (int, error)
}

type sagaService struct {
	db      *gorm.DB
	log     *logger.Logger
	runs    repos.SagaRunRepo
	actions repos.SagaActionRepo
	bucket  storage.ObjectStore
}

func NewSagaService(
	db *gorm.DB,
	baseLog *logger.Logger,
	runs repos.SagaRunRepo,
	actions repos.SagaActionRepo,
	bucket storage.ObjectStore,
) SagaService {
	return &sagaService{
		db:      db,
		log:     baseLog.With("service", "SagaService"),
		runs:    runs,
		actions: actions,
		bucket:  bucket,
	}
}

func (s *sagaService) Begin(ctx context.Context, name string, ownerUserID uuid.UUID) (uuid.UUID, error) {
	if s == nil || s.runs == nil {
		return uuid.Nil, fmt.Errorf("saga service not configured")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return uuid.Nil, fmt.Errorf("missing saga name")
	}

	now := time.Now().UTC()
	row := &types.SagaRun{
		ID:          uuid.New(),
		Name:        name,
		OwnerUserID: ownerUserID,
		Status:      types.SagaStatusRunning,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.runs.Create(dbctx.Context{Ctx: ctx}, []*types.SagaRun{row}); err != nil {
		return uuid.Nil, err
	}
	return row.ID, nil
}

func (s *sagaService) Append(ctx context.Context, runID uuid.UUID, step string, undo txn.UndoRecord) error {
	if s == nil || s.runs == nil || s.actions == nil {
		return fmt.Errorf("saga service not configured")
	}
	if runID == uuid.Nil {
		return fmt.Errorf("missing saga_id")
	}
	kind := strings.TrimSpace(undo.Kind)
	if kind == "" {
		return fmt.Errorf("missing undo kind")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		// Serialize seq assignment by locking the run row.
		run, err := s.runs.LockByID(dbc, runID)
		if err != nil {
			return err
		}
		if run == nil {
			return fmt.Errorf("saga_run not found: %s", runID.String())
		}

		maxSeq, err := s.actions.GetMaxSeq(dbc, runID)
		if err != nil {
			return err
		}

		raw, _ := json.Marshal(undo.Payload)
		now := time.Now().UTC()
		row := &types.SagaAction{
			ID:        uuid.New(),
			SagaID:    runID,
			Seq:       maxSeq + 1,
			Step:      strings.TrimSpace(step),
			Kind:      kind,
			Payload:   datatypes.JSON(raw),
			Status:    types.SagaActionPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		_, err = s.actions.Create(dbc, []*types.SagaAction{row})
		return err
	})
}

func (s *sagaService) MarkStatus(ctx context.Context, runID uuid.UUID, status string) error {
	if s == nil || s.runs == nil {
		return fmt.Errorf("saga service not configured")
	}
	if runID == uuid.Nil {
		return fmt.Errorf("missing saga_id")
	}
	status = strings.TrimSpace(status)
	if status == "" {
		return fmt.Errorf("missing saga status")
	}
	return s.runs.UpdateFields(dbctx.Context{Ctx: ctx}, runID, map[string]interface{}{"status": status})
}

// Compensate replays the run's undo records newest-first. Individual failures
// are logged and the replay continues; the run ends up compensated either way
// and failed actions keep their status for inspection.
func (s *sagaService) Compensate(ctx context.Context, sagaID uuid.UUID) error {
	if s == nil || s.actions == nil {
		return fmt.Errorf("saga service not configured")
	}
	if sagaID == uuid.Nil {
		return fmt.Errorf("missing saga_id")
	}

	actions, err := s.actions.ListBySagaIDDesc(dbctx.Context{Ctx: ctx}, sagaID)
	if err != nil {
		return err
	}

	for _, a := range actions {
		if a == nil || a.ID == uuid.Nil {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(a.Status), types.SagaActionDone) {
			continue
		}

		execErr := s.executeAction(ctx, a)
		nextStatus := types.SagaActionDone
		if execErr != nil {
			nextStatus = types.SagaActionSkipped
			s.log.Warn("saga undo replay failed",
				"saga_id", sagaID.String(),
				"action_id", a.ID.String(),
				"kind", a.Kind,
				"seq", a.Seq,
				"err", execErr.Error(),
			)
		}
		_ = s.actions.UpdateFields(dbctx.Context{Ctx: ctx}, a.ID, map[string]interface{}{"status": nextStatus})
	}

	return s.MarkStatus(ctx, sagaID, types.SagaStatusCompensated)
}

// ReconcileStale finds runs still marked running after olderThan and replays
// their journals. Called once at startup so crashes do not leak orphan rows or
// objects. Returns the number of runs swept.
func (s *sagaService) ReconcileStale(ctx context.Context, olderThan time.Duration) (int, error) {
	if s == nil || s.runs == nil {
		return 0, fmt.Errorf("saga service not configured")
	}

	cutoff := time.Now().UTC().Add(-olderThan)
	stale, err := s.runs.ListStaleRunning(dbctx.Context{Ctx: ctx}, cutoff)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, run := range stale {
		if run == nil || run.ID == uuid.Nil {
			continue
		}
		s.log.Info("sweeping stale saga run", "saga_id", run.ID.String(), "name", run.Name, "updated_at", run.UpdatedAt)
		if err := s.Compensate(ctx, run.ID); err != nil {
			s.log.Warn("stale saga sweep failed (continuing)", "saga_id", run.ID.String(), "err", err.Error())
			continue
		}
		swept++
	}
	return swept, nil
}

func (s *sagaService) executeAction(ctx context.Context, a *types.SagaAction) error {
	if a == nil {
		return nil
	}
	switch strings.TrimSpace(a.Kind) {
	case UndoKindDBDeleteRows:
		var p struct {
			Table string   `json:"table"`
			IDs   []string `json:"ids"`
		}
		_ = json.Unmarshal(a.Payload, &p)
		table := strings.TrimSpace(p.Table)
		if !deletableTables[table] {
			return fmt.Errorf("table not deletable: %q", table)
		}
		ids := parseUUIDs(p.IDs)
		if len(ids) == 0 {
			return nil
		}
		return s.db.WithContext(ctx).
			Exec(fmt.Sprintf("DELETE FROM %s WHERE id IN ?", table), ids).Error

	case UndoKindDBDeleteByParent:
		var p struct {
			Table    string `json:"table"`
			FK       string `json:"fk"`
			ParentID string `json:"parent_id"`
		}
		_ = json.Unmarshal(a.Payload, &p)
		table := strings.TrimSpace(p.Table)
		if !deletableTables[table] {
			return fmt.Errorf("table not deletable: %q", table)
		}
		fk, ok := parentColumn(table, p.FK)
		if !ok {
			return fmt.Errorf("column not deletable: %q.%q", table, p.FK)
		}
		parentID, err := uuid.Parse(strings.TrimSpace(p.ParentID))
		if err != nil {
			return nil
		}
		return s.db.WithContext(ctx).
			Exec(fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, fk), parentID).Error

	case UndoKindStorageDeleteKey:
		if s.bucket == nil {
			return fmt.Errorf("object store unavailable")
		}
		var p struct {
			Category string `json:"category"`
			Key      string `json:"key"`
		}
		_ = json.Unmarshal(a.Payload, &p)
		cat, err := parseStorageCategory(p.Category)
		if err != nil {
			return err
		}
		key := strings.TrimSpace(p.Key)
		if key == "" {
			return nil
		}
		return s.bucket.Delete(ctx, cat, key)

	default:
		return fmt.Errorf("unknown undo kind: %s", a.Kind)
	}
}

// parentColumn allows only the real FK columns of each child table.
func parentColumn(table, fk string) (string, bool) {
	fk = strings.TrimSpace(fk)
	allowed := map[string][]string{
		"team_members":        {"team_id"},
		"team_service_types":  {"team_id"},
		"service_clients":     {"service_id"},
		"store_contacts":      {"store_id"},
		"store_addresses":     {"store_id"},
		"product_identifiers": {"product_id"},
	}
	for _, col := range allowed[table] {
		if col == fk {
			return col, true
		}
	}
	return "", false
}

func parseUUIDs(raw []string) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(strings.TrimSpace(r))
		if err != nil || id == uuid.Nil {
			continue
		}
		out = append(out, id)
	}
	return out
}

func parseStorageCategory(category string) (storage.Category, error) {
	switch strings.ToLower(strings.TrimSpace(category)) {
	case string(storage.CategoryLogo):
		return storage.CategoryLogo, nil
	case string(storage.CategoryAttachment):
		return storage.CategoryAttachment, nil
	default:
		return "", fmt.Errorf("unknown storage category: %q", category)
	}
}
