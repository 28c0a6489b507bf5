package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gestorbiz/gestor-backend/internal/data/repos"
	types "github.com/gestorbiz/gestor-backend/internal/domain"
	"github.com/gestorbiz/gestor-backend/internal/pkg/dbctx"
	"github.com/gestorbiz/gestor-backend/internal/platform/logger"
	"github.com/gestorbiz/gestor-backend/internal/platform/storage"
	"github.com/gestorbiz/gestor-backend/internal/realtime"
	"github.com/gestorbiz/gestor-backend/internal/txn"
	"github.com/gestorbiz/gestor-backend/internal/validation"
)

type StoreContactInput struct {
	Kind  string
	Value string
}

type StoreAddressInput struct {
	Street  string
	City    string
	State   string
	ZipCode string
	Country string
}

type CreateStoreInput struct {
	TeamID      uuid.UUID
	Name        string
	Description string
	Contacts    []StoreContactInput
	Address     *StoreAddressInput
	Logo        *FileUpload
}

type UpdateStoreInput struct {
	Name        *string
	Description *string
}

type StoreService interface {
	CreateStore(ctx context.Context, ownerUserID uuid.UUID, input CreateStoreInput) (*types.Store, error)
	GetStore(ctx context.Context, id uuid.UUID) (*types.Store, error)
	ListStores(ctx context.Context, teamID uuid.UUID) ([]*types.Store, error)
	UpdateStore(ctx context.Context, id uuid.UUID, input UpdateStoreInput) (*types.Store, error)
	DeleteStore(ctx context.Context, id uuid.UUID) error
}

type storeService struct {
	log         *logger.Logger
	coordinator *txn.Coordinator
	stores      repos.StoreRepo
	contacts    repos.StoreContactRepo
	addresses   repos.StoreAddressRepo
	bucket      storage.ObjectStore
	notifier    ChangeNotifier
	cache       *EntityCache
}

func NewStoreService(
	baseLog *logger.Logger,
	coordinator *txn.Coordinator,
	stores repos.StoreRepo,
	contacts repos.StoreContactRepo,
	addresses repos.StoreAddressRepo,
	bucket storage.ObjectStore,
	notifier ChangeNotifier,
	cache *EntityCache,
) StoreService {
	return &storeService{
		log:         baseLog.With("service", "StoreService"),
		coordinator: coordinator,
		stores:      stores,
		contacts:    contacts,
		addresses:   addresses,
		bucket:      bucket,
		notifier:    notifier,
		cache:       cache,
	}
}

func (s *storeService) CreateStore(ctx context.Context, ownerUserID uuid.UUID, input CreateStoreInput) (*types.Store, error) {
	if input.TeamID == uuid.Nil {
		return nil, fmt.Errorf("team id required")
	}

	input.Name = strings.TrimSpace(input.Name)
	if err := validation.MinLen("name", input.Name, 3); err != nil {
		return nil, err
	}
	for i := range input.Contacts {
		input.Contacts[i].Kind = strings.TrimSpace(input.Contacts[i].Kind)
		input.Contacts[i].Value = strings.TrimSpace(input.Contacts[i].Value)
		switch input.Contacts[i].Kind {
		case types.StoreContactKindEmail:
			if err := validation.Required("contacts.value", input.Contacts[i].Value); err != nil {
				return nil, err
			}
			if err := validation.Email("contacts.value", input.Contacts[i].Value); err != nil {
				return nil, err
			}
		case types.StoreContactKindPhone:
			if err := validation.Required("contacts.value", input.Contacts[i].Value); err != nil {
				return nil, err
			}
		default:
			return nil, &validation.ReferenceError{Field: "contacts.kind", Value: input.Contacts[i].Kind}
		}
	}
	if input.Address != nil {
		if err := validation.Required("address.street", input.Address.Street); err != nil {
			return nil, err
		}
		if err := validation.Required("address.city", input.Address.City); err != nil {
			return nil, err
		}
	}
	logoExt, err := checkUpload(input.Logo)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	store := &types.Store{
		ID:          uuid.New(),
		TeamID:      input.TeamID,
		Name:        input.Name,
		Description: strings.TrimSpace(input.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	contactRows := make([]*types.StoreContact, 0, len(input.Contacts))
	for _, c := range input.Contacts {
		contactRows = append(contactRows, &types.StoreContact{
			ID:      uuid.New(),
			StoreID: store.ID,
			Kind:    c.Kind,
			Value:   c.Value,
		})
	}

	steps := []txn.Step{
		{
			Name: "insert_store",
			Run: func(ctx context.Context, tc *txn.Context) error {
				_, err := s.stores.Create(dbctx.Context{Ctx: ctx}, []*types.Store{store})
				return err
			},
			Compensate: func(ctx context.Context, tc *txn.Context) error {
				return s.stores.FullDeleteByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{store.ID})
			},
			Undo: &txn.UndoRecord{
				Kind:    UndoKindDBDeleteRows,
				Payload: map[string]any{"table": "stores", "ids": uuidStrings(store.ID)},
			},
		},
	}

	if len(contactRows) > 0 {
		steps = append(steps, txn.Step{
			Name: "insert_contacts",
			Run: func(ctx context.Context, tc *txn.Context) error {
				_, err := s.contacts.Create(dbctx.Context{Ctx: ctx}, contactRows)
				return err
			},
			// Batch insert may apply partially, so undo by parent id.
			Compensate: func(ctx context.Context, tc *txn.Context) error {
				return s.contacts.FullDeleteByStoreID(dbctx.Context{Ctx: ctx}, store.ID)
			},
			Undo: &txn.UndoRecord{
				Kind:    UndoKindDBDeleteByParent,
				Payload: map[string]any{"table": "store_contacts", "fk": "store_id", "parent_id": store.ID.String()},
			},
		})
	}

	if input.Address != nil {
		address := &types.StoreAddress{
			ID:      uuid.New(),
			StoreID: store.ID,
			Street:  strings.TrimSpace(input.Address.Street),
			City:    strings.TrimSpace(input.Address.City),
			State:   strings.TrimSpace(input.Address.State),
			ZipCode: strings.TrimSpace(input.Address.ZipCode),
			Country: strings.TrimSpace(input.Address.Country),
		}
		steps = append(steps, txn.Step{
			Name: "insert_address",
			Run: func(ctx context.Context, tc *txn.Context) error {
				_, err := s.addresses.Create(dbctx.Context{Ctx: ctx}, []*types.StoreAddress{address})
				return err
			},
			Compensate: func(ctx context.Context, tc *txn.Context) error {
				return s.addresses.FullDeleteByStoreID(dbctx.Context{Ctx: ctx}, store.ID)
			},
			Undo: &txn.UndoRecord{
				Kind:    UndoKindDBDeleteByParent,
				Payload: map[string]any{"table": "store_addresses", "fk": "store_id", "parent_id": store.ID.String()},
			},
		})
	}

	if input.Logo != nil {
		logoKey := objectKey("store_logo", store.ID, logoExt)
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
					store.LogoKey = tc.String("logo_key")
					store.LogoURL = tc.String("logo_url")
					return s.stores.UpdateFields(dbctx.Context{Ctx: ctx}, store.ID, map[string]interface{}{
						"logo_key": store.LogoKey,
						"logo_url": store.LogoURL,
					})
				},
			},
		)
	}

	if _, err := s.coordinator.Execute(ctx, "create_store", ownerUserID, steps); err != nil {
		return nil, err
	}

	applyOptimistic(s.cache, realtime.EntityStore, store.ID, store, store.UpdatedAt)
	if s.notifier != nil {
		s.notifier.RowInserted(store.TeamID, realtime.EntityStore, store.ID, store)
	}
	return store, nil
}

func (s *storeService) GetStore(ctx context.Context, id uuid.UUID) (*types.Store, error) {
	return s.stores.GetByID(dbctx.Context{Ctx: ctx}, id)
}

func (s *storeService) ListStores(ctx context.Context, teamID uuid.UUID) ([]*types.Store, error) {
	return s.stores.ListByTeamID(dbctx.Context{Ctx: ctx}, teamID)
}

func (s *storeService) UpdateStore(ctx context.Context, id uuid.UUID, input UpdateStoreInput) (*types.Store, error) {
	fields := map[string]interface{}{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if err := validation.MinLen("name", name, 3); err != nil {
			return nil, err
		}
		fields["name"] = name
	}
	if input.Description != nil {
		fields["description"] = strings.TrimSpace(*input.Description)
	}
	if len(fields) == 0 {
		return s.stores.GetByID(dbctx.Context{Ctx: ctx}, id)
	}
	fields["updated_at"] = time.Now().UTC()

	if err := s.stores.UpdateFields(dbctx.Context{Ctx: ctx}, id, fields); err != nil {
		return nil, err
	}
	store, err := s.stores.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("store not found")
	}

	applyOptimistic(s.cache, realtime.EntityStore, store.ID, store, store.UpdatedAt)
	if s.notifier != nil {
		s.notifier.RowUpdated(store.TeamID, realtime.EntityStore, store.ID, store)
	}
	return store, nil
}

func (s *storeService) DeleteStore(ctx context.Context, id uuid.UUID) error {
	store, err := s.stores.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return err
	}
	if store == nil {
		return nil
	}

	if err := s.addresses.FullDeleteByStoreID(dbctx.Context{Ctx: ctx}, id); err != nil {
		return err
	}
	if err := s.contacts.FullDeleteByStoreID(dbctx.Context{Ctx: ctx}, id); err != nil {
		return err
	}
	if err := s.stores.FullDeleteByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{id}); err != nil {
		return err
	}

	if key := strings.TrimSpace(store.LogoKey); key != "" {
		if err := s.bucket.Delete(ctx, storage.CategoryLogo, key); err != nil {
			s.log.Warn("failed to delete store logo (ignored)", "store_id", id.String(), "key", key, "error", err)
		}
	}

	if s.cache != nil {
		s.cache.Remove(realtime.EntityStore, id)
	}
	if s.notifier != nil {
		s.notifier.RowDeleted(store.TeamID, realtime.EntityStore, id)
	}
	return nil
}
