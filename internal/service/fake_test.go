package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/FindMalek/dukkani-sub000/internal/database"
	"github.com/FindMalek/dukkani-sub000/internal/models"
	"github.com/FindMalek/dukkani-sub000/internal/utils"
)

// memState is the in-memory database behind the fakes.
type memState struct {
	stores    map[string]models.Store
	products  map[string]models.Product
	variants  map[string]models.Variant
	options   map[string][]models.VariantOption
	customers map[string]models.Customer
	addresses map[string]models.Address
	orders    map[string]models.Order
	items     map[string][]models.OrderItem
}

func newMemState() *memState {
	return &memState{
		stores:    map[string]models.Store{},
		products:  map[string]models.Product{},
		variants:  map[string]models.Variant{},
		options:   map[string][]models.VariantOption{},
		customers: map[string]models.Customer{},
		addresses: map[string]models.Address{},
		orders:    map[string]models.Order{},
		items:     map[string][]models.OrderItem{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.stores {
		c.stores[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.variants {
		c.variants[k] = v
	}
	for k, v := range s.options {
		c.options[k] = append([]models.VariantOption(nil), v...)
	}
	for k, v := range s.customers {
		c.customers[k] = v
	}
	for k, v := range s.addresses {
		c.addresses[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.items {
		c.items[k] = append([]models.OrderItem(nil), v...)
	}
	return c
}

// memDB serialises transactions, which stands in for the row locks, and
// restores a snapshot when a transaction fails. writes counts applied
// mutations and is not rolled back.
type memDB struct {
	txMu   sync.Mutex
	mu     sync.Mutex
	state  *memState
	writes int
}

func newMemDB() *memDB {
	return &memDB{state: newMemState()}
}

func (m *memDB) WithTx(_ context.Context, fn func(tx database.Queryer) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapshot := m.state.clone()
	m.mu.Unlock()

	if err := fn(nil); err != nil {
		m.mu.Lock()
		m.state = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memDB) read(fn func(s *memState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.state)
}

func (m *memDB) write(fn func(s *memState) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := fn(m.state); err != nil {
		return err
	}
	m.writes++
	return nil
}

func (m *memDB) productStock(id string) (n int) {
	m.read(func(s *memState) { n = s.products[id].Stock })
	return n
}

func (m *memDB) variantStock(id string) (n int) {
	m.read(func(s *memState) { n = s.variants[id].Stock })
	return n
}

func (m *memDB) orderCount() (n int) {
	m.read(func(s *memState) { n = len(s.orders) })
	return n
}

func (m *memDB) customerCount() (n int) {
	m.read(func(s *memState) { n = len(s.customers) })
	return n
}

func (m *memDB) writeCount() (n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// fakeStores implements StoreRepository and StoreLookup.
type fakeStores struct{ db *memDB }

func (f fakeStores) GetByID(_ context.Context, _ database.Queryer, id string) (*models.Store, error) {
	var (
		st models.Store
		ok bool
	)
	f.db.read(func(s *memState) { st, ok = s.stores[id] })
	if !ok {
		return nil, utils.NotFoundf("store %s not found", id)
	}
	return &st, nil
}

func (f fakeStores) GetBySlugOrID(_ context.Context, ref string) (*models.Store, error) {
	var found *models.Store
	f.db.read(func(s *memState) {
		for _, st := range s.stores {
			if st.Slug == ref || st.ID == ref {
				cp := st
				found = &cp
			}
		}
	})
	if found == nil {
		return nil, utils.NotFoundf("store %s not found", ref)
	}
	return found, nil
}

// fakeProducts implements ProductRepository.
type fakeProducts struct{ db *memDB }

func (f fakeProducts) selectProducts(storeID string, ids []string) []models.Product {
	var out []models.Product
	f.db.read(func(s *memState) {
		for _, id := range ids {
			if p, ok := s.products[id]; ok && p.StoreID == storeID {
				out = append(out, p)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f fakeProducts) selectVariants(storeID string, ids []string) []models.Variant {
	var out []models.Variant
	f.db.read(func(s *memState) {
		for _, id := range ids {
			v, ok := s.variants[id]
			if !ok {
				continue
			}
			if p, ok := s.products[v.ProductID]; ok && p.StoreID == storeID {
				out = append(out, v)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f fakeProducts) LockProducts(_ context.Context, _ database.Queryer, storeID string, ids []string) ([]models.Product, error) {
	return f.selectProducts(storeID, ids), nil
}

func (f fakeProducts) LockVariants(_ context.Context, _ database.Queryer, storeID string, ids []string) ([]models.Variant, error) {
	return f.selectVariants(storeID, ids), nil
}

func (f fakeProducts) ListProducts(_ context.Context, _ database.Queryer, storeID string, ids []string) ([]models.Product, error) {
	return f.selectProducts(storeID, ids), nil
}

func (f fakeProducts) ListVariants(_ context.Context, _ database.Queryer, storeID string, ids []string) ([]models.Variant, error) {
	return f.selectVariants(storeID, ids), nil
}

func (f fakeProducts) GetByID(_ context.Context, _ database.Queryer, id string) (*models.Product, error) {
	var (
		p  models.Product
		ok bool
	)
	f.db.read(func(s *memState) { p, ok = s.products[id] })
	if !ok {
		return nil, utils.NotFoundf("product %s not found", id)
	}
	return &p, nil
}

func (f fakeProducts) AdjustProductStock(_ context.Context, _ database.Queryer, id string, delta int) error {
	return f.db.write(func(s *memState) error {
		p, ok := s.products[id]
		if !ok {
			return utils.NotFoundf("product %s not found", id)
		}
		if p.Stock+delta < 0 {
			return fmt.Errorf("%w: product %s stock cannot go below zero", utils.ErrInsufficientStock, id)
		}
		p.Stock += delta
		s.products[id] = p
		return nil
	})
}

func (f fakeProducts) AdjustVariantStock(_ context.Context, _ database.Queryer, id string, delta int) error {
	return f.db.write(func(s *memState) error {
		v, ok := s.variants[id]
		if !ok {
			return utils.NotFoundf("variant %s not found", id)
		}
		if v.Stock+delta < 0 {
			return fmt.Errorf("%w: variant %s stock cannot go below zero", utils.ErrInsufficientStock, id)
		}
		v.Stock += delta
		s.variants[id] = v
		return nil
	})
}

func (f fakeProducts) SetHasVariants(_ context.Context, _ database.Queryer, id string) error {
	return f.db.write(func(s *memState) error {
		p, ok := s.products[id]
		if !ok {
			return utils.NotFoundf("product %s not found", id)
		}
		p.HasVariants = true
		s.products[id] = p
		return nil
	})
}

// fakeVariants implements VariantRepository.
type fakeVariants struct{ db *memDB }

func (f fakeVariants) GetOptions(_ context.Context, _ database.Queryer, productID string) ([]models.VariantOption, error) {
	var out []models.VariantOption
	f.db.read(func(s *memState) { out = append(out, s.options[productID]...) })
	return out, nil
}

func (f fakeVariants) CreateOption(_ context.Context, _ database.Queryer, opt *models.VariantOption) error {
	return f.db.write(func(s *memState) error {
		for _, o := range s.options[opt.ProductID] {
			if strings.EqualFold(o.Name, opt.Name) {
				return utils.BadRequestf("option %s already exists", opt.Name)
			}
		}
		s.options[opt.ProductID] = append(s.options[opt.ProductID], *opt)
		return nil
	})
}

func (f fakeVariants) CreateVariant(_ context.Context, _ database.Queryer, v *models.Variant) error {
	return f.db.write(func(s *memState) error {
		for _, existing := range s.variants {
			if existing.ProductID == v.ProductID && existing.SelectionKey == v.SelectionKey {
				return utils.BadRequestf("variant with this selection already exists")
			}
		}
		s.variants[v.ID] = *v
		return nil
	})
}

// fakeCustomers implements CustomerRepository.
type fakeCustomers struct{ db *memDB }

func (f fakeCustomers) GetByID(_ context.Context, _ database.Queryer, id string) (*models.Customer, error) {
	var (
		c  models.Customer
		ok bool
	)
	f.db.read(func(s *memState) { c, ok = s.customers[id] })
	if !ok {
		return nil, utils.NotFoundf("customer %s not found", id)
	}
	return &c, nil
}

func (f fakeCustomers) FindOrCreate(_ context.Context, _ database.Queryer, phone, name, storeID string) (*models.Customer, error) {
	var out models.Customer
	err := f.db.write(func(s *memState) error {
		for _, c := range s.customers {
			if c.Phone == phone && c.StoreID == storeID {
				out = c
				return nil
			}
		}
		out = models.Customer{ID: utils.NewID(), StoreID: storeID, Name: name, Phone: phone}
		s.customers[out.ID] = out
		return nil
	})
	return &out, err
}

func (f fakeCustomers) UpdateWhatsAppPreference(_ context.Context, _ database.Queryer, id string, prefers bool) error {
	return f.db.write(func(s *memState) error {
		c, ok := s.customers[id]
		if !ok {
			return utils.NotFoundf("customer %s not found", id)
		}
		c.PrefersWhatsApp = prefers
		s.customers[id] = c
		return nil
	})
}

// fakeAddresses implements AddressRepository.
type fakeAddresses struct{ db *memDB }

func samePostal(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (f fakeAddresses) GetByID(_ context.Context, _ database.Queryer, id string) (*models.Address, error) {
	var (
		a  models.Address
		ok bool
	)
	f.db.read(func(s *memState) { a, ok = s.addresses[id] })
	if !ok {
		return nil, utils.NotFoundf("address %s not found", id)
	}
	return &a, nil
}

func (f fakeAddresses) FindByKey(_ context.Context, _ database.Queryer, customerID, street, city string, postalCode *string) (*models.Address, error) {
	var found *models.Address
	f.db.read(func(s *memState) {
		for _, a := range s.addresses {
			if a.CustomerID == customerID && a.Street == street && a.City == city && samePostal(a.PostalCode, postalCode) {
				cp := a
				found = &cp
			}
		}
	})
	if found == nil {
		return nil, utils.NotFoundf("address not found")
	}
	return found, nil
}

func (f fakeAddresses) ClearDefault(_ context.Context, _ database.Queryer, customerID string) error {
	return f.db.write(func(s *memState) error {
		for id, a := range s.addresses {
			if a.CustomerID == customerID && a.IsDefault {
				a.IsDefault = false
				s.addresses[id] = a
			}
		}
		return nil
	})
}

func (f fakeAddresses) Create(_ context.Context, _ database.Queryer, a *models.Address) (*models.Address, error) {
	out := *a
	err := f.db.write(func(s *memState) error {
		for _, existing := range s.addresses {
			if existing.CustomerID == a.CustomerID && existing.IsDefault && a.IsDefault {
				return fmt.Errorf("%w: second default address", utils.ErrBadRequest)
			}
		}
		s.addresses[a.ID] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// fakeOrders implements OrderRepository.
type fakeOrders struct{ db *memDB }

func (f fakeOrders) Create(_ context.Context, _ database.Queryer, o *models.Order) error {
	return f.db.write(func(s *memState) error {
		if _, exists := s.orders[o.ID]; exists {
			return utils.BadRequestf("order %s already exists", o.ID)
		}
		row := *o
		row.Items, row.Customer, row.Address = nil, nil, nil
		s.orders[o.ID] = row
		return nil
	})
}

func (f fakeOrders) CreateItems(_ context.Context, _ database.Queryer, items []models.OrderItem) error {
	return f.db.write(func(s *memState) error {
		for _, it := range items {
			s.items[it.OrderID] = append(s.items[it.OrderID], it)
		}
		return nil
	})
}

func (f fakeOrders) GetByID(_ context.Context, _ database.Queryer, id string, _ bool) (*models.Order, error) {
	var (
		o  models.Order
		ok bool
	)
	f.db.read(func(s *memState) { o, ok = s.orders[id] })
	if !ok {
		return nil, utils.NotFoundf("order %s not found", id)
	}
	return &o, nil
}

func (f fakeOrders) GetItems(_ context.Context, _ database.Queryer, orderID string) ([]models.OrderItem, error) {
	out := []models.OrderItem{}
	f.db.read(func(s *memState) { out = append(out, s.items[orderID]...) })
	return out, nil
}

func (f fakeOrders) UpdateStatus(_ context.Context, _ database.Queryer, o *models.Order, status models.OrderStatus) error {
	err := f.db.write(func(s *memState) error {
		row, ok := s.orders[o.ID]
		if !ok {
			return utils.NotFoundf("order %s not found", o.ID)
		}
		row.Status = status
		s.orders[o.ID] = row
		return nil
	})
	if err == nil {
		o.Status = status
	}
	return err
}

func (f fakeOrders) Delete(_ context.Context, _ database.Queryer, id string) error {
	return f.db.write(func(s *memState) error {
		if _, ok := s.orders[id]; !ok {
			return utils.NotFoundf("order %s not found", id)
		}
		delete(s.orders, id)
		delete(s.items, id)
		return nil
	})
}

// fakeIdempotency implements IdempotencyStore.
type fakeIdempotency struct {
	mu   sync.Mutex
	keys map[string]string
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{keys: map[string]string{}}
}

func (f *fakeIdempotency) Claim(_ context.Context, scope, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := scope + ":" + key
	if v, ok := f.keys[k]; ok {
		return v, false, nil
	}
	f.keys[k] = ""
	return "", true, nil
}

func (f *fakeIdempotency) Complete(_ context.Context, scope, key, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys[scope+":"+key] = orderID
	return nil
}

func (f *fakeIdempotency) Release(_ context.Context, scope, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.keys, scope+":"+key)
	return nil
}

func (f *fakeIdempotency) has(scope, key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.keys[scope+":"+key]
	return ok
}

// recordingNotifier captures notifications.
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingNotifier) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingNotifier) OrderCreated(_ context.Context, o *models.Order) error {
	r.add("created:" + o.ID)
	return nil
}

func (r *recordingNotifier) OrderStatusChanged(_ context.Context, o *models.Order) error {
	r.add("status:" + o.ID + ":" + string(o.Status))
	return nil
}

func (r *recordingNotifier) OrderDeleted(_ context.Context, _, orderID string) error {
	r.add("deleted:" + orderID)
	return nil
}

func (r *recordingNotifier) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// harness wires the services against one memDB.
type harness struct {
	db       *memDB
	idem     *fakeIdempotency
	notifier *recordingNotifier
	orders   *OrderService
	catalog  *CatalogService
}

func newHarness() *harness {
	db := newMemDB()
	h := &harness{db: db, idem: newFakeIdempotency(), notifier: &recordingNotifier{}}
	h.orders = NewOrderService(OrderServiceDeps{
		Tx:          db,
		Stores:      fakeStores{db},
		StoreLookup: fakeStores{db},
		Products:    fakeProducts{db},
		Customers:   fakeCustomers{db},
		Addresses:   fakeAddresses{db},
		Orders:      fakeOrders{db},
		Idempotency: h.idem,
		Notifier:    h.notifier,
	})
	h.catalog = NewCatalogService(db, fakeStores{db}, fakeProducts{db}, fakeVariants{db})
	return h
}

func (h *harness) seed(fn func(s *memState)) {
	h.db.mu.Lock()
	defer h.db.mu.Unlock()
	fn(h.db.state)
}
