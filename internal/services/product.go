package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/gestorbiz/gestor-backend/internal/data/repos"
	types "github.com/gestorbiz/gestor-backend/internal/domain"
	"github.com/gestorbiz/gestor-backend/internal/pkg/dbctx"
	"github.com/gestorbiz/gestor-backend/internal/platform/logger"
	"github.com/gestorbiz/gestor-backend/internal/platform/storage"
	"github.com/gestorbiz/gestor-backend/internal/realtime"
	"github.com/gestorbiz/gestor-backend/internal/txn"
	"github.com/gestorbiz/gestor-backend/internal/validation"
)

type ProductIdentifierInput struct {
	Kind  string
	Value string
}

type CreateProductInput struct {
	TeamID      uuid.UUID
	StoreID     uuid.UUID
	Name        string
	Description string
	Price       string
	Stock       string
	Attributes  []validation.KV
	Identifiers []ProductIdentifierInput
	Image       *FileUpload
}

type UpdateProductInput struct {
	Name        *string
	Description *string
	Price       *string
	Stock       *string
	Attributes  []validation.KV
}

type ProductService interface {
	CreateProduct(ctx context.Context, ownerUserID uuid.UUID, input CreateProductInput) (*types.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*types.Product, error)
	ListProducts(ctx context.Context, teamID uuid.UUID) ([]*types.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*types.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

type productService struct {
	log         *logger.Logger
	coordinator *txn.Coordinator
	products    repos.ProductRepo
	identifiers repos.ProductIdentifierRepo
	stores      repos.StoreRepo
	bucket      storage.ObjectStore
	notifier    ChangeNotifier
	cache       *EntityCache
}

func NewProductService(
	baseLog *logger.Logger,
	coordinator *txn.Coordinator,
	products repos.ProductRepo,
	identifiers repos.ProductIdentifierRepo,
	stores repos.StoreRepo,
	bucket storage.ObjectStore,
	notifier ChangeNotifier,
	cache *EntityCache,
) ProductService {
	return &productService{
		log:         baseLog.With("service", "ProductService"),
		coordinator: coordinator,
		products:    products,
		identifiers: identifiers,
		stores:      stores,
		bucket:      bucket,
		notifier:    notifier,
		cache:       cache,
	}
}

func (s *productService) CreateProduct(ctx context.Context, ownerUserID uuid.UUID, input CreateProductInput) (*types.Product, error) {
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
	stock, err := validation.NonNegativeInt("stock", input.Stock)
	if err != nil {
		return nil, err
	}
	if err := validation.UniqueKeys("attributes", input.Attributes); err != nil {
		return nil, err
	}
	for i := range input.Identifiers {
		input.Identifiers[i].Kind = strings.TrimSpace(input.Identifiers[i].Kind)
		input.Identifiers[i].Value = strings.TrimSpace(input.Identifiers[i].Value)
		switch input.Identifiers[i].Kind {
		case types.ProductIdentifierKindBarcode, types.ProductIdentifierKindSKU:
		default:
			return nil, &validation.ReferenceError{Field: "identifiers.kind", Value: input.Identifiers[i].Kind}
		}
		if err := validation.Required("identifiers.value", input.Identifiers[i].Value); err != nil {
			return nil, err
		}
	}
	imageExt, err := checkUpload(input.Image)
	if err != nil {
		return nil, err
	}

	// The store must belong to the same team.
	teamStores, err := s.stores.ListByTeamID(dbctx.Context{Ctx: ctx}, input.TeamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stores: %w", err)
	}
	found := false
	for _, st := range teamStores {
		if st != nil && st.ID == input.StoreID {
			found = true
			break
		}
	}
	if !found {
		return nil, &validation.ReferenceError{Field: "store_id", Value: input.StoreID.String()}
	}

	var attrs datatypes.JSON
	if len(input.Attributes) > 0 {
		raw, err := json.Marshal(input.Attributes)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize attributes: %w", err)
		}
		attrs = datatypes.JSON(raw)
	}

	now := time.Now().UTC()
	product := &types.Product{
		ID:          uuid.New(),
		TeamID:      input.TeamID,
		StoreID:     input.StoreID,
		Name:        input.Name,
		Description: input.Description,
		Price:       price,
		Stock:       stock,
		Attributes:  attrs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	identifierRows := make([]*types.ProductIdentifier, 0, len(input.Identifiers))
	for _, ident := range input.Identifiers {
		identifierRows = append(identifierRows, &types.ProductIdentifier{
			ID:        uuid.New(),
			ProductID: product.ID,
			Kind:      ident.Kind,
			Value:     ident.Value,
		})
	}

	steps := []txn.Step{
		{
			Name: "insert_product",
			Run: func(ctx context.Context, tc *txn.Context) error {
				_, err := s.products.Create(dbctx.Context{Ctx: ctx}, []*types.Product{product})
				return err
			},
			Compensate: func(ctx context.Context, tc *txn.Context) error {
				return s.products.FullDeleteByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{product.ID})
			},
			Undo: &txn.UndoRecord{
				Kind:    UndoKindDBDeleteRows,
				Payload: map[string]any{"table": "products", "ids": uuidStrings(product.ID)},
			},
		},
	}

	if len(identifierRows) > 0 {
		steps = append(steps, txn.Step{
			Name: "insert_identifiers",
			// A duplicate barcode is rejected here by the unique (kind, value)
			// index; the failure compensates the product insert.
			Run: func(ctx context.Context, tc *txn.Context) error {
				_, err := s.identifiers.Create(dbctx.Context{Ctx: ctx}, identifierRows)
				return err
			},
			Compensate: func(ctx context.Context, tc *txn.Context) error {
				return s.identifiers.FullDeleteByProductID(dbctx.Context{Ctx: ctx}, product.ID)
			},
			Undo: &txn.UndoRecord{
				Kind:    UndoKindDBDeleteByParent,
				Payload: map[string]any{"table": "product_identifiers", "fk": "product_id", "parent_id": product.ID.String()},
			},
		})
	}

	if input.Image != nil {
		imageKey := objectKey("product_image", product.ID, imageExt)
		steps = append(steps,
			txn.Step{
				Name: "upload_image",
				Run: func(ctx context.Context, tc *txn.Context) error {
					if err := s.bucket.Upload(ctx, storage.CategoryAttachment, imageKey, input.Image.ContentType, bytes.NewReader(input.Image.Content)); err != nil {
						return err
					}
					tc.Set("image_key", imageKey)
					tc.Set("image_url", s.bucket.PublicURL(storage.CategoryAttachment, imageKey))
					return nil
				},
				Compensate: func(ctx context.Context, tc *txn.Context) error {
					return s.bucket.Delete(ctx, storage.CategoryAttachment, imageKey)
				},
				Undo: &txn.UndoRecord{
					Kind:    UndoKindStorageDeleteKey,
					Payload: map[string]any{"category": string(storage.CategoryAttachment), "key": imageKey},
				},
			},
			txn.Step{
				Name: "patch_image",
				Run: func(ctx context.Context, tc *txn.Context) error {
					product.ImageKey = tc.String("image_key")
					product.ImageURL = tc.String("image_url")
					return s.products.UpdateFields(dbctx.Context{Ctx: ctx}, product.ID, map[string]interface{}{
						"image_key": product.ImageKey,
						"image_url": product.ImageURL,
					})
				},
			},
		)
	}

	if _, err := s.coordinator.Execute(ctx, "create_product", ownerUserID, steps); err != nil {
		return nil, err
	}

	applyOptimistic(s.cache, realtime.EntityProduct, product.ID, product, product.UpdatedAt)
	if s.notifier != nil {
		s.notifier.RowInserted(product.TeamID, realtime.EntityProduct, product.ID, product)
	}
	return product, nil
}

func (s *productService) GetProduct(ctx context.Context, id uuid.UUID) (*types.Product, error) {
	return s.products.GetByID(dbctx.Context{Ctx: ctx}, id)
}

func (s *productService) ListProducts(ctx context.Context, teamID uuid.UUID) ([]*types.Product, error) {
	return s.products.ListByTeamID(dbctx.Context{Ctx: ctx}, teamID)
}

func (s *productService) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*types.Product, error) {
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
	if input.Stock != nil {
		stock, err := validation.NonNegativeInt("stock", *input.Stock)
		if err != nil {
			return nil, err
		}
		fields["stock"] = stock
	}
	if input.Attributes != nil {
		if err := validation.UniqueKeys("attributes", input.Attributes); err != nil {
			return nil, err
		}
		raw, err := json.Marshal(input.Attributes)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize attributes: %w", err)
		}
		fields["attributes"] = datatypes.JSON(raw)
	}
	if len(fields) == 0 {
		return s.products.GetByID(dbctx.Context{Ctx: ctx}, id)
	}
	fields["updated_at"] = time.Now().UTC()

	if err := s.products.UpdateFields(dbctx.Context{Ctx: ctx}, id, fields); err != nil {
		return nil, err
	}
	product, err := s.products.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, fmt.Errorf("product not found")
	}

	applyOptimistic(s.cache, realtime.EntityProduct, product.ID, product, product.UpdatedAt)
	if s.notifier != nil {
		s.notifier.RowUpdated(product.TeamID, realtime.EntityProduct, product.ID, product)
	}
	return product, nil
}

func (s *productService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	product, err := s.products.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return err
	}
	if product == nil {
		return nil
	}

	if err := s.identifiers.FullDeleteByProductID(dbctx.Context{Ctx: ctx}, id); err != nil {
		return err
	}
	if err := s.products.FullDeleteByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{id}); err != nil {
		return err
	}

	if key := strings.TrimSpace(product.ImageKey); key != "" {
		if err := s.bucket.Delete(ctx, storage.CategoryAttachment, key); err != nil {
			s.log.Warn("failed to delete product image (ignored)", "product_id", id.String(), "key", key, "error", err)
		}
	}

	if s.cache != nil {
		s.cache.Remove(realtime.EntityProduct, id)
	}
	if s.notifier != nil {
		s.notifier.RowDeleted(product.TeamID, realtime.EntityProduct, id)
	}
	return nil
}
