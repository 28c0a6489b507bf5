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

type ServiceClientInput struct {
	Name  string
	Email string
	Phone string
}

type CreateServiceInput struct {
	TeamID      uuid.UUID
	TypeID      uuid.UUID
	Name        string
	Description string
	Price       string
	Client      ServiceClientInput
	Attachment  *FileUpload
}

type UpdateServiceInput struct {
	Name        *string
	Description *string
	Price       *string
	Status      *string
}

// CatalogService manages the service entity, the unit of client work a team
// tracks (the name avoids stuttering against the domain type).
type CatalogService interface {
	CreateService(ctx context.Context, ownerUserID uuid.UUID, input CreateServiceInput) (*types.Service, error)
	GetService(ctx context.Context, id uuid.UUID) (*types.Service, error)
	ListServices(ctx context.Context, teamID uuid.UUID) ([]*types.Service, error)
	UpdateService(ctx context.Context, id uuid.UUID, input UpdateServiceInput) (*types.Service, error)
	DeleteService(ctx context.Context, id uuid.UUID) error
}

type catalogService struct {
	log          *logger.Logger
	coordinator  *txn.Coordinator
	services     repos.ServiceRepo
	clients      repos.ServiceClientRepo
	serviceTypes repos.TeamServiceTypeRepo
	bucket       storage.ObjectStore
	notifier     ChangeNotifier
	cache        *EntityCache
}

func NewCatalogService(
	baseLog *logger.Logger,
	coordinator *txn.Coordinator,
	services repos.ServiceRepo,
	clients repos.ServiceClientRepo,
	serviceTypes repos.TeamServiceTypeRepo,
	bucket storage.ObjectStore,
	notifier ChangeNotifier,
	cache *EntityCache,
) CatalogService {
	return &catalogService{
		log:          baseLog.With("service", "CatalogService"),
		coordinator:  coordinator,
		services:     services,
		clients:      clients,
		serviceTypes: serviceTypes,
		bucket:       bucket,
		notifier:     notifier,
		cache:        cache,
	}
}

func (s *catalogService) CreateService(ctx context.Context, ownerUserID uuid.UUID, input CreateServiceInput) (*types.Service, error) {
	if input.TeamID == uuid.Nil {
		return nil, fmt.Errorf("team id required")
	}

	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	if err := validation.MinLen("name", input.Name, 3); err != nil {
		return nil, err
	}
	if err := validation.MinLen("description", input.Description, 5); err != nil {
		return nil, err
	}
	price, err := validation.NonNegativeFloat("price", input.Price)
	if err != nil {
		return nil, err
	}
	input.Client.Name = strings.TrimSpace(input.Client.Name)
	if err := validation.Required("client.name", input.Client.Name); err != nil {
		return nil, err
	}
	if err := validation.Email("client.email", input.Client.Email); err != nil {
		return nil, err
	}
	attachmentExt, err := checkUpload(input.Attachment)
	if err != nil {
		return nil, err
	}

	// The type must come from the team's own reference list.
	knownTypes, err := s.serviceTypes.GetByTeamID(dbctx.Context{Ctx: ctx}, input.TeamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load service types: %w", err)
	}
	found := false
	for _, st := range knownTypes {
		if st != nil && st.ID == input.TypeID {
			found = true
			break
		}
	}
	if !found {
		return nil, &validation.ReferenceError{Field: "type_id", Value: input.TypeID.String()}
	}

	now := time.Now().UTC()
	service := &types.Service{
		ID:          uuid.New(),
		TeamID:      input.TeamID,
		TypeID:      input.TypeID,
		Name:        input.Name,
		Description: input.Description,
		Price:       price,
		Status:      types.ServiceStatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	client := &types.ServiceClient{
		ID:        uuid.New(),
		ServiceID: service.ID,
		Name:      input.Client.Name,
		Email:     strings.ToLower(strings.TrimSpace(input.Client.Email)),
		Phone:     strings.TrimSpace(input.Client.Phone),
	}

	steps := []txn.Step{
		{
			Name: "insert_service",
			Run: func(ctx context.Context, tc *txn.Context) error {
				_, err := s.services.Create(dbctx.Context{Ctx: ctx}, []*types.Service{service})
				return err
			},
			Compensate: func(ctx context.Context, tc *txn.Context) error {
				return s.services.FullDeleteByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{service.ID})
			},
			Undo: &txn.UndoRecord{
				Kind:    UndoKindDBDeleteRows,
				Payload: map[string]any{"table": "services", "ids": uuidStrings(service.ID)},
			},
		},
		{
			Name: "insert_client",
			Run: func(ctx context.Context, tc *txn.Context) error {
				_, err := s.clients.Create(dbctx.Context{Ctx: ctx}, []*types.ServiceClient{client})
				return err
			},
			Compensate: func(ctx context.Context, tc *txn.Context) error {
				return s.clients.FullDeleteByServiceID(dbctx.Context{Ctx: ctx}, service.ID)
			},
			Undo: &txn.UndoRecord{
				Kind:    UndoKindDBDeleteByParent,
				Payload: map[string]any{"table": "service_clients", "fk": "service_id", "parent_id": service.ID.String()},
			},
		},
	}

	if input.Attachment != nil {
		attachmentKey := objectKey("service_attachment", service.ID, attachmentExt)
		steps = append(steps,
			txn.Step{
				Name: "upload_attachment",
				Run: func(ctx context.Context, tc *txn.Context) error {
					if err := s.bucket.Upload(ctx, storage.CategoryAttachment, attachmentKey, input.Attachment.ContentType, bytes.NewReader(input.Attachment.Content)); err != nil {
						return err
					}
					tc.Set("attachment_key", attachmentKey)
					tc.Set("attachment_url", s.bucket.PublicURL(storage.CategoryAttachment, attachmentKey))
					return nil
				},
				Compensate: func(ctx context.Context, tc *txn.Context) error {
					return s.bucket.Delete(ctx, storage.CategoryAttachment, attachmentKey)
				},
				Undo: &txn.UndoRecord{
					Kind:    UndoKindStorageDeleteKey,
					Payload: map[string]any{"category": string(storage.CategoryAttachment), "key": attachmentKey},
				},
			},
			txn.Step{
				Name: "patch_attachment",
				Run: func(ctx context.Context, tc *txn.Context) error {
					service.AttachmentKey = tc.String("attachment_key")
					service.AttachmentURL = tc.String("attachment_url")
					return s.services.UpdateFields(dbctx.Context{Ctx: ctx}, service.ID, map[string]interface{}{
						"attachment_key": service.AttachmentKey,
						"attachment_url": service.AttachmentURL,
					})
				},
			},
		)
	}

	if _, err := s.coordinator.Execute(ctx, "create_service", ownerUserID, steps); err != nil {
		return nil, err
	}

	applyOptimistic(s.cache, realtime.EntityService, service.ID, service, service.UpdatedAt)
	if s.notifier != nil {
		s.notifier.RowInserted(service.TeamID, realtime.EntityService, service.ID, service)
	}
	return service, nil
}

func (s *catalogService) GetService(ctx context.Context, id uuid.UUID) (*types.Service, error) {
	return s.services.GetByID(dbctx.Context{Ctx: ctx}, id)
}

func (s *catalogService) ListServices(ctx context.Context, teamID uuid.UUID) ([]*types.Service, error) {
	return s.services.ListByTeamID(dbctx.Context{Ctx: ctx}, teamID)
}

func (s *catalogService) UpdateService(ctx context.Context, id uuid.UUID, input UpdateServiceInput) (*types.Service, error) {
	fields := map[string]interface{}{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if err := validation.MinLen("name", name, 3); err != nil {
			return nil, err
		}
		fields["name"] = name
	}
	if input.Description != nil {
		desc := strings.TrimSpace(*input.Description)
		if err := validation.MinLen("description", desc, 5); err != nil {
			return nil, err
		}
		fields["description"] = desc
	}
	if input.Price != nil {
		price, err := validation.NonNegativeFloat("price", *input.Price)
		if err != nil {
			return nil, err
		}
		fields["price"] = price
	}
	if input.Status != nil {
		status := strings.TrimSpace(*input.Status)
		switch status {
		case types.ServiceStatusOpen, types.ServiceStatusInProgress, types.ServiceStatusDone:
		default:
			return nil, &validation.ReferenceError{Field: "status", Value: status}
		}
		fields["status"] = status
	}
	if len(fields) == 0 {
		return s.services.GetByID(dbctx.Context{Ctx: ctx}, id)
	}
	fields["updated_at"] = time.Now().UTC()

	if err := s.services.UpdateFields(dbctx.Context{Ctx: ctx}, id, fields); err != nil {
		return nil, err
	}
	service, err := s.services.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, err
	}
	if service == nil {
		return nil, fmt.Errorf("service not found")
	}

	applyOptimistic(s.cache, realtime.EntityService, service.ID, service, service.UpdatedAt)
	if s.notifier != nil {
		s.notifier.RowUpdated(service.TeamID, realtime.EntityService, service.ID, service)
	}
	return service, nil
}

func (s *catalogService) DeleteService(ctx context.Context, id uuid.UUID) error {
	service, err := s.services.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return err
	}
	if service == nil {
		return nil
	}

	if err := s.clients.FullDeleteByServiceID(dbctx.Context{Ctx: ctx}, id); err != nil {
		return err
	}
	if err := s.services.FullDeleteByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{id}); err != nil {
		return err
	}

	if key := strings.TrimSpace(service.AttachmentKey); key != "" {
		if err := s.bucket.Delete(ctx, storage.CategoryAttachment, key); err != nil {
			s.log.Warn("failed to delete service attachment (ignored)", "service_id", id.String(), "key", key, "error", err)
		}
	}

	if s.cache != nil {
		s.cache.Remove(realtime.EntityService, id)
	}
	if s.notifier != nil {
		s.notifier.RowDeleted(service.TeamID, realtime.EntityService, id)
	}
	return nil
}
