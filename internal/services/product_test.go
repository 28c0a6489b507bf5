package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/gestorbiz/gestor-backend/internal/domain"
	"github.com/gestorbiz/gestor-backend/internal/txn"
	"github.com/gestorbiz/gestor-backend/internal/validation"
)

type productFixture struct {
	ops         *opLog
	products    *fakeProductRepo
	identifiers *fakeProductIdentifierRepo
	stores      *fakeStoreRepo
	bucket      *fakeBucket
	svc         ProductService
	teamID      uuid.UUID
	storeID     uuid.UUID
}

func newProductFixture(t *testing.T) *productFixture {
	t.Helper()
	log := newTestLogger(t)
	ops := &opLog{}
	products := newFakeProductRepo(ops)
	identifiers := newFakeProductIdentifierRepo(ops)
	stores := newFakeStoreRepo(ops)
	bucket := newFakeBucket()
	svc := NewProductService(
		log, txn.NewCoordinator(log, nil),
		products, identifiers, stores, bucket,
		NewChangeNotifier(log, nil), NewEntityCache(log, nil, ""),
	)

	teamID := uuid.New()
	storeID := uuid.New()
	stores.rows[storeID] = &types.Store{ID: storeID, TeamID: teamID, Name: "Loja Matriz", UpdatedAt: time.Now()}
	ops.mu.Lock()
	ops.ops = nil
	ops.mu.Unlock()

	return &productFixture{
		ops: ops, products: products, identifiers: identifiers,
		stores: stores, bucket: bucket, svc: svc,
		teamID: teamID, storeID: storeID,
	}
}

func validProductInput(f *productFixture) CreateProductInput {
	return CreateProductInput{
		TeamID:      f.teamID,
		StoreID:     f.storeID,
		Name:        "Cafeteira Elétrica",
		Description: "Cafeteira 110v com timer",
		Price:       "149.90",
		Stock:       "12",
		Attributes:  []validation.KV{{Key: "color", Value: "black"}, {Key: "voltage", Value: "110"}},
		Identifiers: []ProductIdentifierInput{
			{Kind: types.ProductIdentifierKindBarcode, Value: "7891000100103"},
			{Kind: types.ProductIdentifierKindSKU, Value: "CAF-110-BLK"},
		},
	}
}

func TestCreateProductSuccess(t *testing.T) {
	f := newProductFixture(t)

	input := validProductInput(f)
	input.Image = &FileUpload{Name: "front.jpg", ContentType: "image/jpeg", Size: 2048, Content: []byte("jpeg")}

	product, err := f.svc.CreateProduct(context.Background(), uuid.New(), input)
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	if product.Price != 149.90 || product.Stock != 12 {
		t.Fatalf("parsed numbers wrong: %+v", product)
	}
	if len(f.bucket.uploads) != 1 {
		t.Fatalf("expected 1 upload, got %d", len(f.bucket.uploads))
	}
	key := f.bucket.uploads[0]
	if !strings.HasPrefix(key, "product_image/"+product.ID.String()+"/") {
		t.Fatalf("image key %q not namespaced under product id", key)
	}
	if !strings.HasSuffix(key, ".jpg") {
		t.Fatalf("image key %q should carry the jpg extension", key)
	}
	if product.ImageKey != key {
		t.Fatalf("product not patched with image key: %+v", product)
	}
}

func TestCreateProductValidationFailuresWriteNothing(t *testing.T) {
	f := newProductFixture(t)

	cases := []struct {
		name   string
		mutate func(*CreateProductInput)
		target any
	}{
		{"short name", func(in *CreateProductInput) { in.Name = "ab" }, &validation.ValidationError{}},
		{"short description", func(in *CreateProductInput) { in.Description = "abc" }, &validation.ValidationError{}},
		{"negative price", func(in *CreateProductInput) { in.Price = "-1" }, &validation.ValidationError{}},
		{"non-numeric stock", func(in *CreateProductInput) { in.Stock = "many" }, &validation.ValidationError{}},
		{"duplicate attribute keys", func(in *CreateProductInput) {
			in.Attributes = []validation.KV{{Key: "color", Value: "red"}, {Key: "color", Value: "blue"}}
		}, &validation.ValidationError{}},
		{"unknown store", func(in *CreateProductInput) { in.StoreID = uuid.New() }, &validation.ReferenceError{}},
		{"oversized image", func(in *CreateProductInput) {
			in.Image = &FileUpload{Name: "big.png", ContentType: "image/png", Size: validation.MaxFileSizeBytes + 1}
		}, &validation.FileConstraintError{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validProductInput(f)
			tc.mutate(&input)

			_, err := f.svc.CreateProduct(context.Background(), uuid.New(), input)
			if err == nil {
				t.Fatalf("expected error")
			}
			switch tc.target.(type) {
			case *validation.ValidationError:
				var vErr *validation.ValidationError
				if !errors.As(err, &vErr) {
					t.Fatalf("expected ValidationError, got %T: %v", err, err)
				}
			case *validation.ReferenceError:
				var rErr *validation.ReferenceError
				if !errors.As(err, &rErr) {
					t.Fatalf("expected ReferenceError, got %T: %v", err, err)
				}
			case *validation.FileConstraintError:
				var fErr *validation.FileConstraintError
				if !errors.As(err, &fErr) {
					t.Fatalf("expected FileConstraintError, got %T: %v", err, err)
				}
			}
			if n := len(f.ops.all()); n != 0 {
				t.Fatalf("no writes expected, got %v", f.ops.all())
			}
			if len(f.bucket.uploads) != 0 {
				t.Fatalf("no uploads expected, got %v", f.bucket.uploads)
			}
		})
	}
}

func TestCreateProductDuplicateIdentifierCompensatesProduct(t *testing.T) {
	f := newProductFixture(t)
	f.identifiers.failOn = "create"

	_, err := f.svc.CreateProduct(context.Background(), uuid.New(), validProductInput(f))
	var stepErr *txn.StepError
	if !errors.As(err, &stepErr) || stepErr.Step != "insert_identifiers" {
		t.Fatalf("expected StepError at insert_identifiers, got %v", err)
	}

	got := f.ops.all()
	want := []string{"product.create", "identifier.deleteByProduct", "product.delete"}
	if len(got) != len(want) {
		t.Fatalf("ops: want %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ops[%d]: want %q, got %q", i, want[i], got[i])
		}
	}
	if len(f.products.rows) != 0 {
		t.Fatalf("product row should be compensated away")
	}
}

func TestCreateProductPatchFailureCleansUpImage(t *testing.T) {
	f := newProductFixture(t)
	f.products.failOn = "update"

	input := validProductInput(f)
	input.Image = &FileUpload{Name: "front.png", ContentType: "image/png", Size: 64, Content: []byte("png")}

	_, err := f.svc.CreateProduct(context.Background(), uuid.New(), input)
	var stepErr *txn.StepError
	if !errors.As(err, &stepErr) || stepErr.Step != "patch_image" {
		t.Fatalf("expected StepError at patch_image, got %v", err)
	}
	if len(f.bucket.uploads) != 1 || len(f.bucket.deletes) != 1 || f.bucket.deletes[0] != f.bucket.uploads[0] {
		t.Fatalf("uploaded image must be deleted: uploads=%v deletes=%v", f.bucket.uploads, f.bucket.deletes)
	}
	if len(f.products.rows) != 0 {
		t.Fatalf("product row should be compensated away")
	}
}
