package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/FindMalek/dukkani-sub000/internal/database"
	"github.com/FindMalek/dukkani-sub000/internal/models"
	"github.com/FindMalek/dukkani-sub000/internal/notify"
	"github.com/FindMalek/dukkani-sub000/internal/stock"
	"github.com/FindMalek/dukkani-sub000/internal/utils"
)

const (
	minPhoneDigits = 8
	notifyTimeout  = 5 * time.Second
)

var phonePattern = regexp.MustCompile(`^[0-9+\-\s()]+$`)

// OrderItemInput is one line of a dashboard order. The dashboard records the
// price it quotes the customer; it is required.
type OrderItemInput struct {
	ProductID string           `json:"productId"`
	VariantID string           `json:"variantId"`
	Quantity  int              `json:"quantity"`
	Price     *decimal.Decimal `json:"price"`
}

// CreateOrderRequest is an order entered by the store owner.
type CreateOrderRequest struct {
	ID            string               `json:"id"`
	CustomerID    string               `json:"customerId"`
	AddressID     *string              `json:"addressId"`
	Status        models.OrderStatus   `json:"status"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod"`
	IsWhatsApp    bool                 `json:"isWhatsApp"`
	Notes         *string              `json:"notes"`
	Items         []OrderItemInput     `json:"items"`
}

// PublicOrderItemInput is one storefront cart line. It has no price field.
type PublicOrderItemInput struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

// PublicOrderRequest is a guest checkout. Either Address or AddressID must
// be set.
type PublicOrderRequest struct {
	CustomerName  string                 `json:"customerName"`
	Phone         string                 `json:"phone"`
	Address       *AddressInput          `json:"address"`
	AddressID     *string                `json:"addressId"`
	PaymentMethod models.PaymentMethod   `json:"paymentMethod"`
	IsWhatsApp    bool                   `json:"isWhatsApp"`
	Notes         *string                `json:"notes"`
	Items         []PublicOrderItemInput `json:"items"`
}

// OrderServiceDeps groups the collaborators of OrderService.
type OrderServiceDeps struct {
	Tx          TxRunner
	Stores      StoreRepository
	StoreLookup StoreLookup
	Products    ProductRepository
	Customers   CustomerRepository
	Addresses   AddressRepository
	Orders      OrderRepository
	Idempotency IdempotencyStore
	Notifier    notify.OrderNotifier
}

// OrderService places, updates and removes orders. Every mutation that
// touches stock runs in a single transaction.
type OrderService struct {
	tx          TxRunner
	stores      StoreRepository
	storeLookup StoreLookup
	customers   CustomerRepository
	addresses   AddressRepository
	orders      OrderRepository
	idempotency IdempotencyStore
	notifier    notify.OrderNotifier

	checker  *stock.Checker
	ledger   *stock.Ledger
	identity *IdentityResolver
	pricing  *PriceResolver
}

// NewOrderService constructs an OrderService. Idempotency and Notifier are
// optional.
func NewOrderService(d OrderServiceDeps) *OrderService {
	notifier := d.Notifier
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &OrderService{
		tx:          d.Tx,
		stores:      d.Stores,
		storeLookup: d.StoreLookup,
		customers:   d.Customers,
		addresses:   d.Addresses,
		orders:      d.Orders,
		idempotency: d.Idempotency,
		notifier:    notifier,
		checker:     stock.NewChecker(d.Products),
		ledger:      stock.NewLedger(d.Products),
		identity:    NewIdentityResolver(d.Customers, d.Addresses),
		pricing:     NewPriceResolver(d.Products),
	}
}

// CreateOrder places an order on behalf of the store owner.
func (s *OrderService) CreateOrder(ctx context.Context, userID, storeID string, req *CreateOrderRequest) (*models.Order, error) {
	store, err := s.stores.GetByID(ctx, nil, storeID)
	if err != nil {
		return nil, err
	}
	if !store.IsOwnedBy(userID) {
		return nil, utils.Forbiddenf("store %s is not yours", storeID)
	}

	if !req.PaymentMethod.Valid() {
		return nil, utils.BadRequestf("unknown payment method %q", req.PaymentMethod)
	}
	status := req.Status
	if status == "" {
		status = models.OrderStatusPending
	}
	if !status.Valid() {
		return nil, utils.BadRequestf("unknown order status %q", status)
	}
	if len(req.Items) == 0 {
		return nil, utils.BadRequestf("at least one item is required")
	}
	lines := make([]stock.Line, 0, len(req.Items))
	for i, it := range req.Items {
		if it.Price == nil {
			return nil, utils.BadRequestf("item %d: price is required", i)
		}
		if it.Price.IsNegative() {
			return nil, utils.BadRequestf("item %d: price cannot be negative", i)
		}
		lines = append(lines, stock.Line{ProductID: it.ProductID, VariantID: it.VariantID, Quantity: it.Quantity})
	}
	if _, err := stock.Aggregate(lines); err != nil {
		return nil, err
	}

	if req.CustomerID == "" {
		return nil, utils.BadRequestf("customer id is required")
	}
	customer, err := s.customers.GetByID(ctx, nil, req.CustomerID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.BadRequestf("customer %s does not belong to the store", req.CustomerID)
		}
		return nil, err
	}
	if customer.StoreID != store.ID {
		return nil, utils.BadRequestf("customer %s does not belong to the store", req.CustomerID)
	}

	if req.AddressID == nil || *req.AddressID == "" {
		return nil, utils.BadRequestf("address id is required")
	}
	address, err := s.identity.ResolveAddressID(ctx, nil, *req.AddressID, customer.ID)
	if err != nil {
		return nil, err
	}

	orderID := strings.TrimSpace(req.ID)
	if orderID == "" {
		if orderID, err = utils.GenerateOrderID(store.Slug); err != nil {
			return nil, err
		}
	}

	order := &models.Order{
		ID:            orderID,
		StoreID:       store.ID,
		CustomerID:    customer.ID,
		Status:        status,
		PaymentMethod: req.PaymentMethod,
		IsWhatsApp:    req.IsWhatsApp,
		Notes:         req.Notes,
		AddressID:     &address.ID,
		Customer:      customer,
		Address:       address,
	}

	err = s.tx.WithTx(ctx, func(tx database.Queryer) error {
		if err := s.checker.Check(ctx, tx, store.ID, lines); err != nil {
			return err
		}
		if err := s.orders.Create(ctx, tx, order); err != nil {
			return err
		}
		order.Items = make([]models.OrderItem, 0, len(req.Items))
		for _, it := range req.Items {
			order.Items = append(order.Items, newOrderItem(order.ID, it.ProductID, it.VariantID, it.Quantity, *it.Price))
		}
		if err := s.orders.CreateItems(ctx, tx, order.Items); err != nil {
			return err
		}
		return s.ledger.Apply(ctx, tx, lines, stock.Decrement)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("order_id", order.ID).Str("store_id", store.ID).Int("items", len(order.Items)).Msg("Order created")
	s.publish(ctx, "created", func(ctx context.Context) error { return s.notifier.OrderCreated(ctx, order) })
	return order, nil
}

// CreateOrderPublic places a guest order from the storefront. Prices come
// from the catalog and the status is always PENDING. A non-empty
// idempotencyKey makes retries return the first order.
func (s *OrderService) CreateOrderPublic(ctx context.Context, storeRef, idempotencyKey string, req *PublicOrderRequest) (*models.PublicOrder, error) {
	store, err := s.storeLookup.GetBySlugOrID(ctx, storeRef)
	if err != nil {
		return nil, err
	}
	if !store.IsPubliclyOrderable() {
		return nil, utils.NotFoundf("store %s not found", storeRef)
	}
	if !store.SupportsPaymentMethod(req.PaymentMethod) {
		return nil, utils.BadRequestf("payment method %q is not accepted by this store", req.PaymentMethod)
	}

	name := strings.TrimSpace(req.CustomerName)
	if name == "" {
		return nil, utils.BadRequestf("customer name is required")
	}
	phone := strings.TrimSpace(req.Phone)
	if err := validatePhone(phone); err != nil {
		return nil, err
	}
	hasAddressID := req.AddressID != nil && *req.AddressID != ""
	if req.Address == nil && !hasAddressID {
		return nil, utils.BadRequestf("an address or addressId is required")
	}
	if req.Address != nil && !hasAddressID {
		if err := req.Address.normalize(); err != nil {
			return nil, err
		}
	}

	lines := make([]stock.Line, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, stock.Line{ProductID: it.ProductID, VariantID: it.VariantID, Quantity: it.Quantity})
	}
	if _, err := stock.Aggregate(lines); err != nil {
		return nil, err
	}

	if idempotencyKey != "" && s.idempotency != nil {
		existingID, claimed, err := s.idempotency.Claim(ctx, store.ID, idempotencyKey)
		if err != nil {
			return nil, err
		}
		if !claimed {
			if existingID == "" {
				return nil, fmt.Errorf("%w: a request with this idempotency key is in progress", utils.ErrConflict)
			}
			return s.publicView(ctx, store, existingID)
		}
	}

	order, err := s.placePublicOrder(ctx, store, name, phone, req, lines)

	if idempotencyKey != "" && s.idempotency != nil {
		s.settleIdempotencyKey(ctx, store.ID, idempotencyKey, order, err)
	}
	if err != nil {
		return nil, err
	}

	log.Info().Str("order_id", order.ID).Str("store_id", store.ID).Bool("whatsapp", order.IsWhatsApp).Msg("Public order created")
	s.publish(ctx, "created", func(ctx context.Context) error { return s.notifier.OrderCreated(ctx, order) })
	return models.NewPublicOrder(store, order), nil
}

func (s *OrderService) placePublicOrder(ctx context.Context, store *models.Store, name, phone string, req *PublicOrderRequest, lines []stock.Line) (*models.Order, error) {
	orderID, err := utils.GenerateOrderID(store.Slug)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:            orderID,
		StoreID:       store.ID,
		Status:        models.OrderStatusPending,
		PaymentMethod: req.PaymentMethod,
		IsWhatsApp:    req.IsWhatsApp,
		Notes:         req.Notes,
	}

	err = s.tx.WithTx(ctx, func(tx database.Queryer) error {
		if err := s.checker.Check(ctx, tx, store.ID, lines); err != nil {
			return err
		}
		priced, err := s.pricing.Resolve(ctx, tx, store.ID, lines, true)
		if err != nil {
			return err
		}

		customer, err := s.identity.FindOrCreateCustomer(ctx, tx, phone, name, store.ID)
		if err != nil {
			return err
		}
		var address *models.Address
		if req.AddressID != nil && *req.AddressID != "" {
			address, err = s.identity.ResolveAddressID(ctx, tx, *req.AddressID, customer.ID)
		} else {
			address, err = s.identity.CreateOrFindAddress(ctx, tx, *req.Address, customer.ID)
		}
		if err != nil {
			return err
		}
		if customer.PrefersWhatsApp != req.IsWhatsApp {
			if err := s.customers.UpdateWhatsAppPreference(ctx, tx, customer.ID, req.IsWhatsApp); err != nil {
				return err
			}
			customer.PrefersWhatsApp = req.IsWhatsApp
		}

		order.CustomerID = customer.ID
		order.AddressID = &address.ID
		order.Address = address
		if err := s.orders.Create(ctx, tx, order); err != nil {
			return err
		}
		order.Items = make([]models.OrderItem, 0, len(priced))
		for _, pl := range priced {
			order.Items = append(order.Items, newOrderItem(order.ID, pl.ProductID, pl.VariantID, pl.Quantity, pl.Price))
		}
		if err := s.orders.CreateItems(ctx, tx, order.Items); err != nil {
			return err
		}
		return s.ledger.Apply(ctx, tx, lines, stock.Decrement)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// settleIdempotencyKey records the outcome of a claimed key. Failures here
// only cost the client its retry protection, so they are logged.
func (s *OrderService) settleIdempotencyKey(ctx context.Context, storeID, key string, order *models.Order, placeErr error) {
	ctx = context.WithoutCancel(ctx)
	var err error
	if placeErr != nil {
		err = s.idempotency.Release(ctx, storeID, key)
	} else {
		err = s.idempotency.Complete(ctx, storeID, key, order.ID)
	}
	if err != nil {
		log.Warn().Err(err).Str("store_id", storeID).Str("idempotency_key", key).Msg("Failed to settle idempotency key")
	}
}

func (s *OrderService) publicView(ctx context.Context, store *models.Store, orderID string) (*models.PublicOrder, error) {
	order, err := s.orders.GetByID(ctx, nil, orderID, false)
	if err != nil {
		return nil, err
	}
	if order.Items, err = s.orders.GetItems(ctx, nil, order.ID); err != nil {
		return nil, err
	}
	if order.AddressID != nil {
		if order.Address, err = s.addresses.GetByID(ctx, nil, *order.AddressID); err != nil {
			return nil, err
		}
	}
	return models.NewPublicOrder(store, order), nil
}

// GetOrder returns a hydrated order of one of userID's stores.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID string) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, nil, orderID, false)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, nil, userID, order); err != nil {
		return nil, err
	}
	if err := s.hydrate(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// UpdateOrderStatus overwrites the status of an order. Any known status may
// follow any other.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, userID, orderID string, status models.OrderStatus) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, nil, orderID, false)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, nil, userID, order); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, utils.BadRequestf("unknown order status %q", status)
	}

	previous := order.Status
	if err := s.orders.UpdateStatus(ctx, nil, order, status); err != nil {
		return nil, err
	}
	if err := s.hydrate(ctx, order); err != nil {
		return nil, err
	}

	log.Info().Str("order_id", order.ID).Str("from", string(previous)).Str("to", string(status)).Msg("Order status updated")
	s.publish(ctx, "status_changed", func(ctx context.Context) error { return s.notifier.OrderStatusChanged(ctx, order) })
	return order, nil
}

// DeleteOrder removes an order and returns its quantities to stock.
func (s *OrderService) DeleteOrder(ctx context.Context, userID, orderID string) error {
	var storeID string
	err := s.tx.WithTx(ctx, func(tx database.Queryer) error {
		order, err := s.orders.GetByID(ctx, tx, orderID, true)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, tx, userID, order); err != nil {
			return err
		}
		storeID = order.StoreID

		items, err := s.orders.GetItems(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		if len(items) > 0 {
			lines := make([]stock.Line, 0, len(items))
			for _, it := range items {
				l := stock.Line{ProductID: it.ProductID, Quantity: it.Quantity}
				if it.VariantID != nil {
					l.VariantID = *it.VariantID
				}
				lines = append(lines, l)
			}
			if err := s.ledger.Apply(ctx, tx, lines, stock.Increment); err != nil {
				return err
			}
		}
		return s.orders.Delete(ctx, tx, order.ID)
	})
	if err != nil {
		return err
	}

	log.Info().Str("order_id", orderID).Str("store_id", storeID).Msg("Order deleted")
	s.publish(ctx, "deleted", func(ctx context.Context) error { return s.notifier.OrderDeleted(ctx, storeID, orderID) })
	return nil
}

func (s *OrderService) authorize(ctx context.Context, q database.Queryer, userID string, order *models.Order) error {
	store, err := s.stores.GetByID(ctx, q, order.StoreID)
	if err != nil {
		return err
	}
	if !store.IsOwnedBy(userID) {
		return utils.Forbiddenf("order %s belongs to another store", order.ID)
	}
	return nil
}

func (s *OrderService) hydrate(ctx context.Context, order *models.Order) error {
	var err error
	if order.Items, err = s.orders.GetItems(ctx, nil, order.ID); err != nil {
		return err
	}
	if order.Customer, err = s.customers.GetByID(ctx, nil, order.CustomerID); err != nil {
		return err
	}
	if order.AddressID != nil {
		if order.Address, err = s.addresses.GetByID(ctx, nil, *order.AddressID); err != nil {
			return err
		}
	}
	return nil
}

// publish runs a notifier call detached from the request's cancellation.
func (s *OrderService) publish(ctx context.Context, event string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Error().Err(err).Str("event", event).Msg("Order notification failed")
	}
}

func newOrderItem(orderID, productID, variantID string, qty int, price decimal.Decimal) models.OrderItem {
	it := models.OrderItem{
		ID:        utils.NewID(),
		OrderID:   orderID,
		ProductID: productID,
		Quantity:  qty,
		Price:     price,
	}
	if variantID != "" {
		v := variantID
		it.VariantID = &v
	}
	return it
}

func validatePhone(phone string) error {
	if !phonePattern.MatchString(phone) {
		return utils.BadRequestf("phone number contains invalid characters")
	}
	digits := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits < minPhoneDigits {
		return utils.BadRequestf("phone number must contain at least %d digits", minPhoneDigits)
	}
	return nil
}
