// Package orders captures and updates orders: manual and inquiry intake,
// verified online payments, and operator status changes.
package orders

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"storefront/internal/models"
	"storefront/internal/notify"
	"storefront/internal/payment"
	"storefront/internal/store"
)

const idPrefix = "LC-"

// maxInsertAttempts bounds retries when another process already used an id.
const maxInsertAttempts = 3

type OrderStore interface {
	Insert(ctx context.Context, order *models.Order) error
	FindByOrderID(ctx context.Context, orderID string) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID string, orderStatus, paymentStatus *string) (*models.Order, error)
	List(ctx context.Context, filter store.OrderFilter) ([]models.Order, int64, error)
}

type Catalog interface {
	FindByID(ctx context.Context, id string) (*models.Product, error)
}

type CartClearer interface {
	Clear(ctx context.Context, sessionID string) error
}

type Options struct {
	PaymentSecret  string
	StrictTotals   bool
	TotalTolerance float64
	WhatsAppNumber string
	StoreName      string
}

type Service struct {
	store      OrderStore
	catalog    Catalog
	carts      CartClearer
	dispatcher notify.Dispatcher
	ids        *IDGenerator
	opts       Options
	now        func() time.Time
}

func NewService(orders OrderStore, catalog Catalog, carts CartClearer, dispatcher notify.Dispatcher, opts Options) *Service {
	return &Service{
		store:      orders,
		catalog:    catalog,
		carts:      carts,
		dispatcher: dispatcher,
		ids:        NewIDGenerator(idPrefix),
		opts:       opts,
		now:        time.Now,
	}
}

var validate = validator.New()

type CustomerInfo struct {
	Name            string
	Email           string
	Phone           string
	ShippingAddress string
}

func (c CustomerInfo) normalized() CustomerInfo {
	return CustomerInfo{
		Name:            strings.TrimSpace(c.Name),
		Email:           strings.ToLower(strings.TrimSpace(c.Email)),
		Phone:           strings.TrimSpace(c.Phone),
		ShippingAddress: strings.TrimSpace(c.ShippingAddress),
	}
}

func (c CustomerInfo) problems() []string {
	var out []string
	if c.Name == "" {
		out = append(out, "customerName is required")
	}
	if c.Email != "" && validate.Var(c.Email, "email") != nil {
		out = append(out, "customerEmail is invalid")
	}
	if c.Phone == "" {
		out = append(out, "customerPhone is required")
	}
	if c.ShippingAddress == "" {
		out = append(out, "shippingAddress is required")
	}
	return out
}

func itemProblems(items []models.OrderItem) []string {
	if len(items) == 0 {
		return []string{"at least one item is required"}
	}
	var out []string
	for i, item := range items {
		if strings.TrimSpace(item.ProductID) == "" {
			out = append(out, fmt.Sprintf("items[%d].productId is required", i))
		}
		if item.Quantity <= 0 {
			out = append(out, fmt.Sprintf("items[%d].quantity must be greater than 0", i))
		}
		if item.Price < 0 || math.IsNaN(item.Price) || math.IsInf(item.Price, 0) {
			out = append(out, fmt.Sprintf("items[%d].price is invalid", i))
		}
	}
	return out
}

func totalProblems(total float64) []string {
	if total < 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return []string{"totalAmount is invalid"}
	}
	return nil
}

type ManualOrderInput struct {
	Customer      CustomerInfo
	Items         []models.OrderItem
	TotalAmount   float64
	OrderType     string
	PaymentStatus string
	OrderStatus   string
}

// CreateManual persists an order placed outside the payment gateway. The
// supplied total is stored as given unless strict totals are enabled.
func (s *Service) CreateManual(ctx context.Context, in ManualOrderInput) (string, error) {
	customer := in.Customer.normalized()

	problems := customer.problems()
	problems = append(problems, itemProblems(in.Items)...)
	problems = append(problems, totalProblems(in.TotalAmount)...)

	orderType := defaultString(in.OrderType, models.OrderTypeWhatsApp)
	paymentStatus := defaultString(in.PaymentStatus, models.PaymentStatusPending)
	orderStatus := defaultString(in.OrderStatus, models.OrderStatusPending)
	if !models.IsValidOrderType(orderType) {
		problems = append(problems, "orderType is invalid")
	}
	if !models.IsValidPaymentStatus(paymentStatus) {
		problems = append(problems, "paymentStatus is invalid")
	}
	if !models.IsValidOrderStatus(orderStatus) {
		problems = append(problems, "orderStatus is invalid")
	}
	if len(problems) > 0 {
		return "", invalid(problems...)
	}

	if s.opts.StrictTotals {
		if err := s.checkTotal(ctx, in.Items, in.TotalAmount); err != nil {
			return "", err
		}
	}

	order := &models.Order{
		CustomerName:    customer.Name,
		CustomerEmail:   customer.Email,
		CustomerPhone:   customer.Phone,
		ShippingAddress: customer.ShippingAddress,
		Items:           in.Items,
		TotalAmount:     in.TotalAmount,
		PaymentStatus:   paymentStatus,
		OrderStatus:     orderStatus,
		OrderType:       orderType,
	}
	if err := s.insert(ctx, order); err != nil {
		return "", err
	}

	zap.L().Info("[ORDER] manual order created",
		zap.String("orderId", order.OrderID),
		zap.String("orderType", order.OrderType),
		zap.Float64("totalAmount", order.TotalAmount),
	)
	s.announce(ctx, order)
	return order.OrderID, nil
}

type OrderDetails struct {
	Customer    CustomerInfo
	Items       []models.OrderItem
	TotalAmount float64
	SessionID   string
}

type VerifyInput struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
	Order            OrderDetails
}

// VerifyAndRecord checks the gateway signature and, only when it matches,
// persists the order as paid. Client-supplied payment state is ignored. A
// paid order that fails the strict total check is still stored, pending and
// carrying a review note. Each gateway order id is recorded once.
func (s *Service) VerifyAndRecord(ctx context.Context, in VerifyInput) (string, error) {
	var problems []string
	if strings.TrimSpace(in.GatewayOrderID) == "" {
		problems = append(problems, "razorpay_order_id is required")
	}
	if strings.TrimSpace(in.GatewayPaymentID) == "" {
		problems = append(problems, "razorpay_payment_id is required")
	}
	if strings.TrimSpace(in.Signature) == "" {
		problems = append(problems, "razorpay_signature is required")
	}
	if len(problems) > 0 {
		return "", invalid(problems...)
	}

	if !payment.VerifySignature(s.opts.PaymentSecret, in.GatewayOrderID, in.GatewayPaymentID, in.Signature) {
		zap.L().Warn("[PAYMENT] signature mismatch",
			zap.String("gatewayOrderId", in.GatewayOrderID),
			zap.String("gatewayPaymentId", in.GatewayPaymentID),
		)
		return "", ErrSignatureMismatch
	}

	// Past this point the customer has paid, so every refusal is logged
	// with the gateway ids for manual reconciliation.
	paymentFields := []zap.Field{
		zap.String("gatewayOrderId", in.GatewayOrderID),
		zap.String("gatewayPaymentId", in.GatewayPaymentID),
	}

	customer := in.Order.Customer.normalized()
	problems = customer.problems()
	problems = append(problems, itemProblems(in.Order.Items)...)
	problems = append(problems, totalProblems(in.Order.TotalAmount)...)
	if len(problems) > 0 {
		zap.L().Error("[PAYMENT] verified payment rejected", append(paymentFields, zap.Strings("problems", problems))...)
		return "", invalid(problems...)
	}

	orderStatus := models.OrderStatusConfirmed
	var reviewNote string
	if s.opts.StrictTotals {
		if err := s.checkTotal(ctx, in.Order.Items, in.Order.TotalAmount); err != nil {
			orderStatus = models.OrderStatusPending
			reviewNote = reviewNoteFor(err)
			zap.L().Error("[PAYMENT] verified payment held for review", append(paymentFields, zap.Error(err))...)
		}
	}

	order := &models.Order{
		CustomerName:     customer.Name,
		CustomerEmail:    customer.Email,
		CustomerPhone:    customer.Phone,
		ShippingAddress:  customer.ShippingAddress,
		Items:            in.Order.Items,
		TotalAmount:      in.Order.TotalAmount,
		PaymentStatus:    models.PaymentStatusPaid,
		OrderStatus:      orderStatus,
		OrderType:        models.OrderTypeOnline,
		GatewayOrderID:   in.GatewayOrderID,
		GatewayPaymentID: in.GatewayPaymentID,
		ReviewNote:       reviewNote,
	}
	if err := s.insert(ctx, order); err != nil {
		if errors.Is(err, ErrPaymentRecorded) {
			zap.L().Warn("[PAYMENT] callback replayed", paymentFields...)
			return "", ErrPaymentRecorded
		}
		zap.L().Error("[PAYMENT] verified payment not recorded", append(paymentFields, zap.Error(err))...)
		return "", err
	}

	zap.L().Info("[PAYMENT] verified order recorded",
		zap.String("orderId", order.OrderID),
		zap.String("gatewayOrderId", order.GatewayOrderID),
		zap.Float64("totalAmount", order.TotalAmount),
	)

	if sessionID := strings.TrimSpace(in.Order.SessionID); sessionID != "" && s.carts != nil {
		if err := s.carts.Clear(ctx, sessionID); err != nil {
			zap.L().Warn("[CART] clear after payment failed", zap.String("orderId", order.OrderID), zap.Error(err))
		}
	}

	s.announce(ctx, order)
	return order.OrderID, nil
}

type StatusUpdate struct {
	OrderID        string
	OrderStatus    *string
	PaymentStatus  *string
	TrackingNumber string
}

// UpdateStatus sets whichever status fields are present. When the order has
// a customer email, one status update and one invoice are dispatched.
func (s *Service) UpdateStatus(ctx context.Context, in StatusUpdate) (*models.Order, error) {
	orderID := strings.TrimSpace(in.OrderID)
	var problems []string
	if orderID == "" {
		problems = append(problems, "id is required")
	}
	if in.OrderStatus == nil && in.PaymentStatus == nil {
		problems = append(problems, "orderStatus or paymentStatus is required")
	}
	if in.OrderStatus != nil && !models.IsValidOrderStatus(*in.OrderStatus) {
		problems = append(problems, "orderStatus is invalid")
	}
	if in.PaymentStatus != nil && !models.IsValidPaymentStatus(*in.PaymentStatus) {
		problems = append(problems, "paymentStatus is invalid")
	}
	if len(problems) > 0 {
		return nil, invalid(problems...)
	}

	order, err := s.store.UpdateStatus(ctx, orderID, in.OrderStatus, in.PaymentStatus)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update order %s: %w", orderID, err)
	}

	zap.L().Info("[ORDER] status updated",
		zap.String("orderId", order.OrderID),
		zap.String("orderStatus", order.OrderStatus),
		zap.String("paymentStatus", order.PaymentStatus),
	)

	if order.CustomerEmail != "" {
		update := notify.FromOrder(notify.KindStatusUpdate, order)
		update.Data.TrackingNumber = strings.TrimSpace(in.TrackingNumber)
		s.dispatcher.Dispatch(ctx, update)
		s.dispatcher.Dispatch(ctx, notify.FromOrder(notify.KindInvoice, order))
	}
	return order, nil
}

type InquiryInput struct {
	ProductID string
	Quantity  int
	Size      string
	Customer  CustomerInfo
}

type InquiryResult struct {
	OrderID     string `json:"orderId"`
	WhatsAppURL string `json:"whatsappUrl,omitempty"`
}

// CreateFromInquiry turns a single-product inquiry into a pending WhatsApp
// order priced from the catalog.
func (s *Service) CreateFromInquiry(ctx context.Context, in InquiryInput) (*InquiryResult, error) {
	customer := in.Customer.normalized()
	size := strings.TrimSpace(in.Size)

	problems := customer.problems()
	if strings.TrimSpace(in.ProductID) == "" {
		problems = append(problems, "productId is required")
	}
	if in.Quantity <= 0 {
		problems = append(problems, "quantity must be greater than 0")
	}
	if len(problems) > 0 {
		return nil, invalid(problems...)
	}

	product, err := s.catalog.FindByID(ctx, in.ProductID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, invalid("product not found")
	}
	if err != nil {
		return nil, fmt.Errorf("catalog lookup %s: %w", in.ProductID, err)
	}
	if !product.IsActive {
		return nil, invalid("product is not available")
	}
	if !product.HasSize(size) {
		return nil, invalid(fmt.Sprintf("size %q is not offered", size))
	}

	name := product.Name
	if size != "" {
		name = fmt.Sprintf("%s (%s)", product.Name, size)
	}
	items := []models.OrderItem{{
		ProductID:   product.ID.Hex(),
		ProductCode: product.Code,
		Name:        name,
		Price:       product.EffectivePrice(),
		Quantity:    in.Quantity,
	}}
	total, _ := lineTotal(items).Float64()

	order := &models.Order{
		CustomerName:    customer.Name,
		CustomerEmail:   customer.Email,
		CustomerPhone:   customer.Phone,
		ShippingAddress: customer.ShippingAddress,
		Items:           items,
		TotalAmount:     total,
		PaymentStatus:   models.PaymentStatusPending,
		OrderStatus:     models.OrderStatusPending,
		OrderType:       models.OrderTypeWhatsApp,
	}
	if err := s.insert(ctx, order); err != nil {
		return nil, err
	}

	zap.L().Info("[ORDER] inquiry order created", zap.String("orderId", order.OrderID), zap.String("productId", in.ProductID))
	s.announce(ctx, order)

	return &InquiryResult{OrderID: order.OrderID, WhatsAppURL: s.whatsAppLink(order)}, nil
}

func (s *Service) Get(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.store.FindByOrderID(ctx, strings.TrimSpace(orderID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return order, err
}

func (s *Service) List(ctx context.Context, filter store.OrderFilter) ([]models.Order, int64, error) {
	if filter.OrderStatus != "" && !models.IsValidOrderStatus(filter.OrderStatus) {
		return nil, 0, invalid("orderStatus is invalid")
	}
	if filter.PaymentStatus != "" && !models.IsValidPaymentStatus(filter.PaymentStatus) {
		return nil, 0, invalid("paymentStatus is invalid")
	}
	if filter.OrderType != "" && !models.IsValidOrderType(filter.OrderType) {
		return nil, 0, invalid("orderType is invalid")
	}
	return s.store.List(ctx, filter)
}

// insert assigns a fresh identifier and creation time, retrying with a new
// identifier only when the orderId index reports a collision.
func (s *Service) insert(ctx context.Context, order *models.Order) error {
	order.CreatedAt = s.now().UTC()
	var err error
	for attempt := 0; attempt < maxInsertAttempts; attempt++ {
		order.OrderID = s.ids.Next()
		err = s.store.Insert(ctx, order)
		if !errors.Is(err, store.ErrDuplicate) || errors.Is(err, store.ErrPaymentRecorded) {
			break
		}
		zap.L().Warn("[ORDER] order id collision, retrying", zap.String("orderId", order.OrderID))
	}
	if err != nil {
		return fmt.Errorf("persist order: %w", err)
	}
	return nil
}

// announce queues the customer confirmation and the operator alert.
func (s *Service) announce(ctx context.Context, order *models.Order) {
	if order.CustomerEmail != "" {
		s.dispatcher.Dispatch(ctx, notify.FromOrder(notify.KindOrderConfirmation, order))
	}
	s.dispatcher.Dispatch(ctx, notify.FromOrder(notify.KindAdminNotification, order))
}

func (s *Service) whatsAppLink(order *models.Order) string {
	number := digitsOnly(s.opts.WhatsAppNumber)
	if number == "" {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s, I would like to order:\n", defaultString(s.opts.StoreName, "there"))
	for _, item := range order.Items {
		fmt.Fprintf(&b, "%s x%d\n", item.Name, item.Quantity)
	}
	fmt.Fprintf(&b, "Total: %s\nOrder ID: %s", strconv.FormatFloat(order.TotalAmount, 'f', 2, 64), order.OrderID)

	text := strings.ReplaceAll(url.QueryEscape(b.String()), "+", "%20")
	return "https://wa.me/" + number + "?text=" + text
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func defaultString(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}
