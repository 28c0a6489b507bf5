package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	types "github.com/gestorbiz/gestor-backend/internal/domain"
	"github.com/gestorbiz/gestor-backend/internal/txn"
	"github.com/gestorbiz/gestor-backend/internal/validation"
)

func newStoreFixture(t *testing.T) (*opLog, *fakeStoreRepo, *fakeStoreContactRepo, *fakeStoreAddressRepo, *fakeBucket, StoreService) {
	t.Helper()
	log := newTestLogger(t)
	ops := &opLog{}
	stores := newFakeStoreRepo(ops)
	contacts := newFakeStoreContactRepo(ops)
	addresses := newFakeStoreAddressRepo(ops)
	bucket := newFakeBucket()
	cache := NewEntityCache(log, nil, "")
	notifier := NewChangeNotifier(log, nil)
	coordinator := txn.NewCoordinator(log, nil)
	svc := NewStoreService(log, coordinator, stores, contacts, addresses, bucket, notifier, cache)
	return ops, stores, contacts, addresses, bucket, svc
}

func storeInput() CreateStoreInput {
	return CreateStoreInput{
		TeamID:      uuid.New(),
		Name:        "Loja Matriz",
		Description: "Loja principal do centro",
		Contacts: []StoreContactInput{
			{Kind: types.StoreContactKindEmail, Value: "matriz@loja.com.br"},
			{Kind: types.StoreContactKindPhone, Value: "+55 11 91234-5678"},
		},
		Address: &StoreAddressInput{
			Street:  "Rua das Flores, 120",
			City:    "São Paulo",
			State:   "SP",
			ZipCode: "01001-000",
			Country: "BR",
		},
	}
}

func TestCreateStoreSuccessRunsAllSteps(t *testing.T) {
	ops, stores, contacts, addresses, bucket, svc := newStoreFixture(t)

	input := storeInput()
	input.Logo = pngUpload()
	store, err := svc.CreateStore(context.Background(), uuid.New(), input)
	if err != nil {
		t.Fatalf("CreateStore: %v", err)
	}
	if store == nil || store.ID == uuid.Nil {
		t.Fatalf("CreateStore: no store returned")
	}
	if store.LogoKey == "" || store.LogoURL == "" {
		t.Fatalf("CreateStore: logo not patched: %+v", store)
	}

	want := []string{"store.create", "contact.create", "address.create", "store.update"}
	got := ops.all()
	if len(got) != len(want) {
		t.Fatalf("ops: want %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ops[%d]: want %q, got %q (all: %v)", i, want[i], got[i], got)
		}
	}
	if len(bucket.uploads) != 1 || len(bucket.deletes) != 0 {
		t.Fatalf("storage calls: uploads=%v deletes=%v", bucket.uploads, bucket.deletes)
	}
	if len(contacts.rows) != 2 {
		t.Fatalf("expected 2 contact rows, got %d", len(contacts.rows))
	}
	if len(addresses.rows) != 1 {
		t.Fatalf("expected 1 address row, got %d", len(addresses.rows))
	}
	if _, ok := stores.rows[store.ID]; !ok {
		t.Fatalf("store row missing after success")
	}
}

func TestCreateStoreWithoutOptionalPartsSkipsTheirSteps(t *testing.T) {
	ops, _, _, _, bucket, svc := newStoreFixture(t)

	_, err := svc.CreateStore(context.Background(), uuid.New(), CreateStoreInput{
		TeamID: uuid.New(),
		Name:   "Quiosque da Praça",
	})
	if err != nil {
		t.Fatalf("CreateStore: %v", err)
	}

	got := ops.all()
	if len(got) != 1 || got[0] != "store.create" {
		t.Fatalf("bare store should only insert the store row, ops=%v", got)
	}
	if len(bucket.uploads) != 0 {
		t.Fatalf("no uploads expected, got %v", bucket.uploads)
	}
}

func TestCreateStoreAddressFailureCompensatesByParent(t *testing.T) {
	ops, stores, contacts, addresses, bucket, svc := newStoreFixture(t)
	addresses.failOn = "create"

	input := storeInput()
	input.Logo = pngUpload()
	_, err := svc.CreateStore(context.Background(), uuid.New(), input)
	if err == nil {
		t.Fatalf("expected error")
	}
	var stepErr *txn.StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("expected *txn.StepError, got %T: %v", err, err)
	}
	if stepErr.Step != "insert_address" {
		t.Fatalf("StepError should name insert_address, got %q", stepErr.Step)
	}

	got := ops.all()
	want := []string{
		"store.create", "contact.create",
		"contact.deleteByStore", "store.delete",
	}
	if len(got) != len(want) {
		t.Fatalf("ops: want %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ops[%d]: want %q, got %q (all: %v)", i, want[i], got[i], got)
		}
	}
	if len(stores.rows) != 0 || len(contacts.rows) != 0 {
		t.Fatalf("compensation left rows behind")
	}
	if len(bucket.uploads) != 0 {
		t.Fatalf("upload must never run before dependent inserts succeed")
	}
}

func TestCreateStoreContactFailureCompensatesStoreRow(t *testing.T) {
	ops, stores, contacts, _, _, svc := newStoreFixture(t)
	contacts.failOn = "create"

	_, err := svc.CreateStore(context.Background(), uuid.New(), storeInput())
	var stepErr *txn.StepError
	if !errors.As(err, &stepErr) || stepErr.Step != "insert_contacts" {
		t.Fatalf("expected StepError at insert_contacts, got %v", err)
	}

	got := ops.all()
	want := []string{"store.create", "store.delete"}
	if len(got) != len(want) {
		t.Fatalf("ops: want %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ops[%d]: want %q, got %q (all: %v)", i, want[i], got[i], got)
		}
	}
	if len(stores.rows) != 0 || len(contacts.rows) != 0 {
		t.Fatalf("compensation left rows behind")
	}
}

func TestCreateStoreValidationFailureWritesNothing(t *testing.T) {
	ops, _, _, _, bucket, svc := newStoreFixture(t)

	input := storeInput()
	input.Contacts = []StoreContactInput{{Kind: "fax", Value: "11 3333-4444"}}
	_, err := svc.CreateStore(context.Background(), uuid.New(), input)
	var refErr *validation.ReferenceError
	if !errors.As(err, &refErr) {
		t.Fatalf("expected *validation.ReferenceError, got %T: %v", err, err)
	}
	if refErr.Field != "contacts.kind" {
		t.Fatalf("ReferenceError should name contacts.kind, got %q", refErr.Field)
	}

	input = storeInput()
	input.Contacts[0].Value = "not-an-email"
	_, err = svc.CreateStore(context.Background(), uuid.New(), input)
	var vErr *validation.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected *validation.ValidationError, got %T: %v", err, err)
	}

	if len(ops.all()) != 0 || len(bucket.uploads) != 0 {
		t.Fatalf("validation failure must not write anything: ops=%v uploads=%v", ops.all(), bucket.uploads)
	}
}
