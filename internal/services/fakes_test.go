package services

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/gestorbiz/gestor-backend/internal/domain"
	"github.com/gestorbiz/gestor-backend/internal/pkg/dbctx"
	"github.com/gestorbiz/gestor-backend/internal/platform/logger"
	"github.com/gestorbiz/gestor-backend/internal/platform/storage"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

// fakeBucket records uploads and deletes in order and can fail on demand.
type fakeBucket struct {
	mu        sync.Mutex
	uploads   []string
	deletes   []string
	failKeyed map[string]error
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{failKeyed: make(map[string]error)}
}

func (b *fakeBucket) Upload(ctx context.Context, cat storage.Category, key, contentType string, r io.Reader) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err, ok := b.failKeyed["upload"]; ok {
		return err
	}
	b.uploads = append(b.uploads, key)
	return nil
}

func (b *fakeBucket) Delete(ctx context.Context, cat storage.Category, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deletes = append(b.deletes, key)
	return nil
}

func (b *fakeBucket) DeletePrefix(ctx context.Context, cat storage.Category, prefix string) error {
	return nil
}

func (b *fakeBucket) ListKeys(ctx context.Context, cat storage.Category, prefix string) ([]string, error) {
	return nil, nil
}

func (b *fakeBucket) PublicURL(cat storage.Category, key string) string {
	return "https://cdn.test/" + key
}

func (b *fakeBucket) SignedURL(cat storage.Category, key string, ttl time.Duration) (string, error) {
	return "https://signed.test/" + key, nil
}

// opLog records every repo mutation in call order so tests can assert the
// exact write/compensation sequence.
type opLog struct {
	mu  sync.Mutex
	ops []string
}

func (l *opLog) add(op string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ops = append(l.ops, op)
}

func (l *opLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.ops))
	copy(out, l.ops)
	return out
}

func (l *opLog) count(op string) int {
	n := 0
	for _, o := range l.all() {
		if o == op {
			n++
		}
	}
	return n
}

type fakeTeamRepo struct {
	log     *opLog
	failOn  string
	rows    map[uuid.UUID]*types.Team
	updates int
}

func newFakeTeamRepo(log *opLog) *fakeTeamRepo {
	return &fakeTeamRepo{log: log, rows: make(map[uuid.UUID]*types.Team)}
}

func (r *fakeTeamRepo) Create(dbc dbctx.Context, teams []*types.Team) ([]*types.Team, error) {
	if r.failOn == "create" {
		return nil, fmt.Errorf("forced team create failure")
	}
	r.log.add("team.create")
	for _, t := range teams {
		r.rows[t.ID] = t
	}
	return teams, nil
}

func (r *fakeTeamRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Team, error) {
	return r.rows[id], nil
}

func (r *fakeTeamRepo) List(dbc dbctx.Context) ([]*types.Team, error) {
	out := []*types.Team{}
	for _, t := range r.rows {
		out = append(out, t)
	}
	return out, nil
}

func (r *fakeTeamRepo) ListByMemberUserID(dbc dbctx.Context, userID uuid.UUID) ([]*types.Team, error) {
	return r.List(dbc)
}

func (r *fakeTeamRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, fields map[string]interface{}) error {
	if r.failOn == "update" {
		return fmt.Errorf("forced team update failure")
	}
	r.log.add("team.update")
	r.updates++
	return nil
}

func (r *fakeTeamRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	r.log.add("team.delete")
	for _, id := range ids {
		delete(r.rows, id)
	}
	return nil
}

type fakeTeamMemberRepo struct {
	log    *opLog
	failOn string
	rows   map[uuid.UUID]*types.TeamMember
}

func newFakeTeamMemberRepo(log *opLog) *fakeTeamMemberRepo {
	return &fakeTeamMemberRepo{log: log, rows: make(map[uuid.UUID]*types.TeamMember)}
}

func (r *fakeTeamMemberRepo) Create(dbc dbctx.Context, members []*types.TeamMember) ([]*types.TeamMember, error) {
	if r.failOn == "create" {
		return nil, fmt.Errorf("forced member create failure")
	}
	r.log.add("member.create")
	for _, m := range members {
		r.rows[m.ID] = m
	}
	return members, nil
}

func (r *fakeTeamMemberRepo) GetByTeamID(dbc dbctx.Context, teamID uuid.UUID) ([]*types.TeamMember, error) {
	return nil, nil
}

func (r *fakeTeamMemberRepo) Exists(dbc dbctx.Context, teamID, userID uuid.UUID) (bool, error) {
	for _, m := range r.rows {
		if m.TeamID == teamID && m.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeTeamMemberRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	r.log.add("member.delete")
	for _, id := range ids {
		delete(r.rows, id)
	}
	return nil
}

func (r *fakeTeamMemberRepo) FullDeleteByTeamID(dbc dbctx.Context, teamID uuid.UUID) error {
	r.log.add("member.deleteByTeam")
	return nil
}

type fakeServiceTypeRepo struct {
	log    *opLog
	failOn string
	rows   []*types.TeamServiceType
}

func newFakeServiceTypeRepo(log *opLog) *fakeServiceTypeRepo {
	return &fakeServiceTypeRepo{log: log}
}

func (r *fakeServiceTypeRepo) Create(dbc dbctx.Context, rows []*types.TeamServiceType) ([]*types.TeamServiceType, error) {
	if r.failOn == "create" {
		return nil, fmt.Errorf("forced service type create failure")
	}
	r.log.add("serviceType.create")
	r.rows = append(r.rows, rows...)
	return rows, nil
}

func (r *fakeServiceTypeRepo) GetByTeamID(dbc dbctx.Context, teamID uuid.UUID) ([]*types.TeamServiceType, error) {
	out := []*types.TeamServiceType{}
	for _, st := range r.rows {
		if st.TeamID == teamID {
			out = append(out, st)
		}
	}
	return out, nil
}

func (r *fakeServiceTypeRepo) FullDeleteByTeamID(dbc dbctx.Context, teamID uuid.UUID) error {
	r.log.add("serviceType.deleteByTeam")
	kept := r.rows[:0]
	for _, st := range r.rows {
		if st.TeamID != teamID {
			kept = append(kept, st)
		}
	}
	r.rows = kept
	return nil
}

type fakeStoreRepo struct {
	log    *opLog
	failOn string
	rows   map[uuid.UUID]*types.Store
}

func newFakeStoreRepo(log *opLog) *fakeStoreRepo {
	return &fakeStoreRepo{log: log, rows: make(map[uuid.UUID]*types.Store)}
}

func (r *fakeStoreRepo) Create(dbc dbctx.Context, stores []*types.Store) ([]*types.Store, error) {
	if r.failOn == "create" {
		return nil, fmt.Errorf("forced store create failure")
	}
	r.log.add("store.create")
	for _, st := range stores {
		r.rows[st.ID] = st
	}
	return stores, nil
}

func (r *fakeStoreRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Store, error) {
	return r.rows[id], nil
}

func (r *fakeStoreRepo) List(dbc dbctx.Context) ([]*types.Store, error) {
	out := []*types.Store{}
	for _, st := range r.rows {
		out = append(out, st)
	}
	return out, nil
}

func (r *fakeStoreRepo) ListByTeamID(dbc dbctx.Context, teamID uuid.UUID) ([]*types.Store, error) {
	out := []*types.Store{}
	for _, st := range r.rows {
		if st.TeamID == teamID {
			out = append(out, st)
		}
	}
	return out, nil
}

func (r *fakeStoreRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, fields map[string]interface{}) error {
	r.log.add("store.update")
	return nil
}

func (r *fakeStoreRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	r.log.add("store.delete")
	for _, id := range ids {
		delete(r.rows, id)
	}
	return nil
}

type fakeProductRepo struct {
	log    *opLog
	failOn string
	rows   map[uuid.UUID]*types.Product
}

func newFakeProductRepo(log *opLog) *fakeProductRepo {
	return &fakeProductRepo{log: log, rows: make(map[uuid.UUID]*types.Product)}
}

func (r *fakeProductRepo) Create(dbc dbctx.Context, products []*types.Product) ([]*types.Product, error) {
	if r.failOn == "create" {
		return nil, fmt.Errorf("forced product create failure")
	}
	r.log.add("product.create")
	for _, p := range products {
		r.rows[p.ID] = p
	}
	return products, nil
}

func (r *fakeProductRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Product, error) {
	return r.rows[id], nil
}

func (r *fakeProductRepo) List(dbc dbctx.Context) ([]*types.Product, error) {
	out := []*types.Product{}
	for _, p := range r.rows {
		out = append(out, p)
	}
	return out, nil
}

func (r *fakeProductRepo) ListByTeamID(dbc dbctx.Context, teamID uuid.UUID) ([]*types.Product, error) {
	return r.List(dbc)
}

func (r *fakeProductRepo) ListByStoreID(dbc dbctx.Context, storeID uuid.UUID) ([]*types.Product, error) {
	return r.List(dbc)
}

func (r *fakeProductRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, fields map[string]interface{}) error {
	if r.failOn == "update" {
		return fmt.Errorf("forced product update failure")
	}
	r.log.add("product.update")
	return nil
}

func (r *fakeProductRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	r.log.add("product.delete")
	for _, id := range ids {
		delete(r.rows, id)
	}
	return nil
}

type fakeProductIdentifierRepo struct {
	log    *opLog
	failOn string
	rows   []*types.ProductIdentifier
}

func newFakeProductIdentifierRepo(log *opLog) *fakeProductIdentifierRepo {
	return &fakeProductIdentifierRepo{log: log}
}

func (r *fakeProductIdentifierRepo) Create(dbc dbctx.Context, identifiers []*types.ProductIdentifier) ([]*types.ProductIdentifier, error) {
	if r.failOn == "create" {
		return nil, fmt.Errorf("duplicate key value violates unique constraint \"idx_product_identifiers_kind_value\"")
	}
	r.log.add("identifier.create")
	r.rows = append(r.rows, identifiers...)
	return identifiers, nil
}

func (r *fakeProductIdentifierRepo) GetByProductID(dbc dbctx.Context, productID uuid.UUID) ([]*types.ProductIdentifier, error) {
	return nil, nil
}

func (r *fakeProductIdentifierRepo) ExistsKindValue(dbc dbctx.Context, kind, value string) (bool, error) {
	return false, nil
}

func (r *fakeProductIdentifierRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	r.log.add("identifier.delete")
	return nil
}

func (r *fakeProductIdentifierRepo) FullDeleteByProductID(dbc dbctx.Context, productID uuid.UUID) error {
	r.log.add("identifier.deleteByProduct")
	return nil
}

type fakeServiceRepo struct {
	log    *opLog
	failOn string
	rows   map[uuid.UUID]*types.Service
}

func newFakeServiceRepo(log *opLog) *fakeServiceRepo {
	return &fakeServiceRepo{log: log, rows: make(map[uuid.UUID]*types.Service)}
}

func (r *fakeServiceRepo) Create(dbc dbctx.Context, services []*types.Service) ([]*types.Service, error) {
	if r.failOn == "create" {
		return nil, fmt.Errorf("forced service create failure")
	}
	r.log.add("service.create")
	for _, s := range services {
		r.rows[s.ID] = s
	}
	return services, nil
}

func (r *fakeServiceRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Service, error) {
	return r.rows[id], nil
}

func (r *fakeServiceRepo) List(dbc dbctx.Context) ([]*types.Service, error) {
	out := []*types.Service{}
	for _, s := range r.rows {
		out = append(out, s)
	}
	return out, nil
}

func (r *fakeServiceRepo) ListByTeamID(dbc dbctx.Context, teamID uuid.UUID) ([]*types.Service, error) {
	out := []*types.Service{}
	for _, s := range r.rows {
		if s.TeamID == teamID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeServiceRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, fields map[string]interface{}) error {
	if r.failOn == "update" {
		return fmt.Errorf("forced service update failure")
	}
	r.log.add("service.update")
	return nil
}

func (r *fakeServiceRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	r.log.add("service.delete")
	for _, id := range ids {
		delete(r.rows, id)
	}
	return nil
}

type fakeServiceClientRepo struct {
	log    *opLog
	failOn string
	rows   []*types.ServiceClient
}

func newFakeServiceClientRepo(log *opLog) *fakeServiceClientRepo {
	return &fakeServiceClientRepo{log: log}
}

func (r *fakeServiceClientRepo) Create(dbc dbctx.Context, clients []*types.ServiceClient) ([]*types.ServiceClient, error) {
	if r.failOn == "create" {
		return nil, fmt.Errorf("forced service client create failure")
	}
	r.log.add("client.create")
	r.rows = append(r.rows, clients...)
	return clients, nil
}

func (r *fakeServiceClientRepo) GetByServiceID(dbc dbctx.Context, serviceID uuid.UUID) ([]*types.ServiceClient, error) {
	out := []*types.ServiceClient{}
	for _, c := range r.rows {
		if c.ServiceID == serviceID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeServiceClientRepo) FullDeleteByServiceID(dbc dbctx.Context, serviceID uuid.UUID) error {
	r.log.add("client.deleteByService")
	kept := r.rows[:0]
	for _, c := range r.rows {
		if c.ServiceID != serviceID {
			kept = append(kept, c)
		}
	}
	r.rows = kept
	return nil
}

type fakeStoreContactRepo struct {
	log    *opLog
	failOn string
	rows   []*types.StoreContact
}

func newFakeStoreContactRepo(log *opLog) *fakeStoreContactRepo {
	return &fakeStoreContactRepo{log: log}
}

func (r *fakeStoreContactRepo) Create(dbc dbctx.Context, contacts []*types.StoreContact) ([]*types.StoreContact, error) {
	if r.failOn == "create" {
		return nil, fmt.Errorf("forced store contact create failure")
	}
	r.log.add("contact.create")
	r.rows = append(r.rows, contacts...)
	return contacts, nil
}

func (r *fakeStoreContactRepo) GetByStoreID(dbc dbctx.Context, storeID uuid.UUID) ([]*types.StoreContact, error) {
	out := []*types.StoreContact{}
	for _, c := range r.rows {
		if c.StoreID == storeID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeStoreContactRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	r.log.add("contact.delete")
	return nil
}

func (r *fakeStoreContactRepo) FullDeleteByStoreID(dbc dbctx.Context, storeID uuid.UUID) error {
	r.log.add("contact.deleteByStore")
	kept := r.rows[:0]
	for _, c := range r.rows {
		if c.StoreID != storeID {
			kept = append(kept, c)
		}
	}
	r.rows = kept
	return nil
}

type fakeStoreAddressRepo struct {
	log    *opLog
	failOn string
	rows   []*types.StoreAddress
}

func newFakeStoreAddressRepo(log *opLog) *fakeStoreAddressRepo {
	return &fakeStoreAddressRepo{log: log}
}

func (r *fakeStoreAddressRepo) Create(dbc dbctx.Context, addresses []*types.StoreAddress) ([]*types.StoreAddress, error) {
	if r.failOn == "create" {
		return nil, fmt.Errorf("forced store address create failure")
	}
	r.log.add("address.create")
	r.rows = append(r.rows, addresses...)
	return addresses, nil
}

func (r *fakeStoreAddressRepo) GetByStoreID(dbc dbctx.Context, storeID uuid.UUID) (*types.StoreAddress, error) {
	for _, a := range r.rows {
		if a.StoreID == storeID {
			return a, nil
		}
	}
	return nil, nil
}

func (r *fakeStoreAddressRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	r.log.add("address.delete")
	return nil
}

func (r *fakeStoreAddressRepo) FullDeleteByStoreID(dbc dbctx.Context, storeID uuid.UUID) error {
	r.log.add("address.deleteByStore")
	kept := r.rows[:0]
	for _, a := range r.rows {
		if a.StoreID != storeID {
			kept = append(kept, a)
		}
	}
	r.rows = kept
	return nil
}
