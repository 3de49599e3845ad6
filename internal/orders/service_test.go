package orders

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"storefront/internal/models"
	"storefront/internal/notify"
	"storefront/internal/payment"
	"storefront/internal/store"
	"storefront/internal/testutil"
)

const testSecret = "test_secret"

type fixture struct {
	svc        *Service
	orders     *testutil.MemoryOrderStore
	catalog    *testutil.MemoryCatalog
	carts      *testutil.FakeCart
	dispatcher *testutil.RecordingDispatcher
}

func newFixture(opts Options) *fixture {
	if opts.PaymentSecret == "" {
		opts.PaymentSecret = testSecret
	}
	f := &fixture{
		orders:     testutil.NewMemoryOrderStore(),
		catalog:    testutil.NewMemoryCatalog(),
		carts:      &testutil.FakeCart{},
		dispatcher: &testutil.RecordingDispatcher{},
	}
	f.svc = NewService(f.orders, f.catalog, f.carts, f.dispatcher, opts)
	return f
}

func customer() CustomerInfo {
	return CustomerInfo{
		Name:            "Asha Rao",
		Email:           "Asha@Example.com",
		Phone:           "+91 99999 99999",
		ShippingAddress: "12 MG Road, Pune",
	}
}

func strPtr(s string) *string { return &s }

func TestCreateManualPersistsTotalAsSupplied(t *testing.T) {
	f := newFixture(Options{})

	id, err := f.svc.CreateManual(context.Background(), ManualOrderInput{
		Customer:    customer(),
		Items:       []models.OrderItem{{ProductID: "p1", Name: "Kurta", Price: 500, Quantity: 2}},
		TotalAmount: 1234,
	})
	if err != nil {
		t.Fatalf("CreateManual returned error: %v", err)
	}
	if !strings.HasPrefix(id, "LC-") {
		t.Fatalf("expected LC- id, got %s", id)
	}

	order, _ := f.orders.FindByOrderID(context.Background(), id)
	if order.TotalAmount != 1234 {
		t.Fatalf("expected total to be stored as supplied, got %v", order.TotalAmount)
	}
	if order.PaymentStatus != models.PaymentStatusPending || order.OrderStatus != models.OrderStatusPending || order.OrderType != models.OrderTypeWhatsApp {
		t.Fatalf("unexpected defaults: %+v", order)
	}
	if order.CustomerEmail != "asha@example.com" {
		t.Fatalf("expected normalized email, got %q", order.CustomerEmail)
	}
	if order.CreatedAt.IsZero() {
		t.Fatal("expected createdAt to be set")
	}
}

func TestCreateManualDispatchesConfirmationAndAdminAlert(t *testing.T) {
	f := newFixture(Options{})
	in := ManualOrderInput{
		Customer:    customer(),
		Items:       []models.OrderItem{{ProductID: "p1", Price: 500, Quantity: 2}},
		TotalAmount: 1000,
	}

	if _, err := f.svc.CreateManual(context.Background(), in); err != nil {
		t.Fatalf("CreateManual returned error: %v", err)
	}
	if f.dispatcher.Count(notify.KindOrderConfirmation) != 1 || f.dispatcher.Count(notify.KindAdminNotification) != 1 {
		t.Fatalf("expected one confirmation and one admin alert, got %+v", f.dispatcher.Sent())
	}

	in.Customer.Email = ""
	if _, err := f.svc.CreateManual(context.Background(), in); err != nil {
		t.Fatalf("CreateManual returned error: %v", err)
	}
	if f.dispatcher.Count(notify.KindOrderConfirmation) != 1 || f.dispatcher.Count(notify.KindAdminNotification) != 2 {
		t.Fatalf("expected no customer confirmation without email, got %+v", f.dispatcher.Sent())
	}
}

func TestCreateManualHonoursOverrides(t *testing.T) {
	f := newFixture(Options{})
	id, err := f.svc.CreateManual(context.Background(), ManualOrderInput{
		Customer:      customer(),
		Items:         []models.OrderItem{{ProductID: "p1", Price: 10, Quantity: 1}},
		TotalAmount:   10,
		OrderType:     models.OrderTypeOnline,
		PaymentStatus: models.PaymentStatusPaid,
		OrderStatus:   models.OrderStatusProcessing,
	})
	if err != nil {
		t.Fatalf("CreateManual returned error: %v", err)
	}
	order, _ := f.orders.FindByOrderID(context.Background(), id)
	if order.OrderType != models.OrderTypeOnline || order.PaymentStatus != models.PaymentStatusPaid || order.OrderStatus != models.OrderStatusProcessing {
		t.Fatalf("expected overrides to be kept, got %+v", order)
	}
}

func TestCreateManualRejectsInvalidInput(t *testing.T) {
	f := newFixture(Options{})
	cases := map[string]ManualOrderInput{
		"missing name":    {Customer: CustomerInfo{Phone: "1", ShippingAddress: "a"}, Items: []models.OrderItem{{ProductID: "p", Quantity: 1}}},
		"missing phone":   {Customer: CustomerInfo{Name: "n", ShippingAddress: "a"}, Items: []models.OrderItem{{ProductID: "p", Quantity: 1}}},
		"missing address": {Customer: CustomerInfo{Name: "n", Phone: "1"}, Items: []models.OrderItem{{ProductID: "p", Quantity: 1}}},
		"no items":        {Customer: customer()},
		"zero quantity":   {Customer: customer(), Items: []models.OrderItem{{ProductID: "p", Quantity: 0}}},
		"bad status":      {Customer: customer(), Items: []models.OrderItem{{ProductID: "p", Quantity: 1}}, OrderStatus: "lost"},
		"bad type":        {Customer: customer(), Items: []models.OrderItem{{ProductID: "p", Quantity: 1}}, OrderType: "fax"},
		"negative total":  {Customer: customer(), Items: []models.OrderItem{{ProductID: "p", Quantity: 1}}, TotalAmount: -1},
	}
	for name, in := range cases {
		if _, err := f.svc.CreateManual(context.Background(), in); !IsValidation(err) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
	if f.orders.Len() != 0 || len(f.dispatcher.Sent()) != 0 {
		t.Fatal("expected nothing persisted or dispatched for invalid input")
	}
}

func TestCreateManualRetriesOnIDCollision(t *testing.T) {
	f := newFixture(Options{})
	f.orders.DuplicateOnce = true

	id, err := f.svc.CreateManual(context.Background(), ManualOrderInput{
		Customer: customer(),
		Items:    []models.OrderItem{{ProductID: "p", Price: 1, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("expected collision to be retried, got %v", err)
	}
	if f.orders.Len() != 1 || id == "" {
		t.Fatalf("expected one stored order, got %d", f.orders.Len())
	}
}

func verifyInput(orderID, paymentID, signature string) VerifyInput {
	return VerifyInput{
		GatewayOrderID:   orderID,
		GatewayPaymentID: paymentID,
		Signature:        signature,
		Order: OrderDetails{
			Customer:    customer(),
			Items:       []models.OrderItem{{ProductID: "p1", ProductCode: "KRT-01", Name: "Kurta", Price: 7500, Quantity: 1}},
			TotalAmount: 7500,
			SessionID:   "sess_12345678",
		},
	}
}

func TestVerifyAndRecordPersistsPaidConfirmedOnline(t *testing.T) {
	f := newFixture(Options{})
	sig := payment.Sign(testSecret, "order_abc", "pay_xyz")

	id, err := f.svc.VerifyAndRecord(context.Background(), verifyInput("order_abc", "pay_xyz", sig))
	if err != nil {
		t.Fatalf("VerifyAndRecord returned error: %v", err)
	}

	order, err := f.orders.FindByOrderID(context.Background(), id)
	if err != nil {
		t.Fatalf("expected stored order: %v", err)
	}
	if order.PaymentStatus != models.PaymentStatusPaid || order.OrderStatus != models.OrderStatusConfirmed || order.OrderType != models.OrderTypeOnline {
		t.Fatalf("unexpected statuses: %+v", order)
	}
	if order.GatewayOrderID != "order_abc" || order.GatewayPaymentID != "pay_xyz" {
		t.Fatalf("expected gateway ids to be stored, got %+v", order)
	}
	if len(f.carts.Cleared) != 1 || f.carts.Cleared[0] != "sess_12345678" {
		t.Fatalf("expected cart to be cleared, got %v", f.carts.Cleared)
	}
	if f.dispatcher.Count(notify.KindOrderConfirmation) != 1 || f.dispatcher.Count(notify.KindAdminNotification) != 1 {
		t.Fatalf("expected confirmation and admin alert, got %+v", f.dispatcher.Sent())
	}
}

func TestVerifyAndRecordIssuesDistinctIDs(t *testing.T) {
	f := newFixture(Options{})
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		sig := payment.Sign(testSecret, "order_abc", "pay_xyz")
		id, err := f.svc.VerifyAndRecord(context.Background(), verifyInput("order_abc", "pay_xyz", sig))
		if err != nil {
			t.Fatalf("VerifyAndRecord returned error: %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate order id %s", id)
		}
		seen[id] = true
	}
}

func TestVerifyAndRecordRejectsTamperedSignature(t *testing.T) {
	f := newFixture(Options{})
	sig := payment.Sign(testSecret, "order_abc", "pay_other")

	_, err := f.svc.VerifyAndRecord(context.Background(), verifyInput("order_abc", "pay_xyz", sig))
	if !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("expected ErrSignatureMismatch, got %v", err)
	}
	if f.orders.Len() != 0 {
		t.Fatal("expected no order to be stored")
	}
	if len(f.carts.Cleared) != 0 || len(f.dispatcher.Sent()) != 0 {
		t.Fatal("expected no side effects on mismatch")
	}
}

func TestVerifyAndRecordCartFailureDoesNotFailOrder(t *testing.T) {
	f := newFixture(Options{})
	f.carts.Err = errors.New("redis down")
	sig := payment.Sign(testSecret, "order_abc", "pay_xyz")

	if _, err := f.svc.VerifyAndRecord(context.Background(), verifyInput("order_abc", "pay_xyz", sig)); err != nil {
		t.Fatalf("expected cart failure to be ignored, got %v", err)
	}
	if f.orders.Len() != 1 {
		t.Fatal("expected order to be stored")
	}
}

func TestVerifyAndRecordRequiresGatewayFields(t *testing.T) {
	f := newFixture(Options{})
	if _, err := f.svc.VerifyAndRecord(context.Background(), verifyInput("", "pay", "sig")); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStrictTotalsRejectsMismatch(t *testing.T) {
	f := newFixture(Options{StrictTotals: true, TotalTolerance: 1})
	pid := f.catalog.Put(models.Product{Name: "Kurta", Price: 500, IsActive: true})

	in := ManualOrderInput{
		Customer:    customer(),
		Items:       []models.OrderItem{{ProductID: pid, Price: 1, Quantity: 2}},
		TotalAmount: 2,
	}
	if _, err := f.svc.CreateManual(context.Background(), in); !IsValidation(err) {
		t.Fatalf("expected validation error for mismatched total, got %v", err)
	}

	in.TotalAmount = 1000.5
	if _, err := f.svc.CreateManual(context.Background(), in); err != nil {
		t.Fatalf("expected total within tolerance to pass, got %v", err)
	}

	in.Items[0].ProductID = "000000000000000000000000"
	if _, err := f.svc.CreateManual(context.Background(), in); !IsValidation(err) {
		t.Fatalf("expected unknown product to be rejected, got %v", err)
	}
}

func TestStrictTotalsUsesSalePrice(t *testing.T) {
	f := newFixture(Options{StrictTotals: true, TotalTolerance: 0.01})
	pid := f.catalog.Put(models.Product{Name: "Kurta", Price: 500, SaleEnabled: true, SalePrice: 400, IsActive: true})
	sig := payment.Sign(testSecret, "order_1", "pay_1")

	in := verifyInput("order_1", "pay_1", sig)
	in.Order.Items = []models.OrderItem{{ProductID: pid, Price: 400, Quantity: 3}}
	in.Order.TotalAmount = 1200
	if _, err := f.svc.VerifyAndRecord(context.Background(), in); err != nil {
		t.Fatalf("expected sale-priced total to pass, got %v", err)
	}
}

func captureLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zap.InfoLevel)
	t.Cleanup(zap.ReplaceGlobals(zap.New(core)))
	return logs
}

func TestVerifyAndRecordSameCallbackTwiceStoresOneOrder(t *testing.T) {
	f := newFixture(Options{})
	sig := payment.Sign(testSecret, "order_abc", "pay_xyz")

	first, err := f.svc.VerifyAndRecord(context.Background(), verifyInput("order_abc", "pay_xyz", sig))
	if err != nil {
		t.Fatalf("first VerifyAndRecord returned error: %v", err)
	}
	sent := len(f.dispatcher.Sent())

	_, err = f.svc.VerifyAndRecord(context.Background(), verifyInput("order_abc", "pay_xyz", sig))
	if !errors.Is(err, ErrPaymentRecorded) {
		t.Fatalf("expected ErrPaymentRecorded on replay, got %v", err)
	}
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatal("expected replay error to match store.ErrDuplicate")
	}
	if f.orders.Len() != 1 {
		t.Fatalf("expected one stored order, got %d", f.orders.Len())
	}
	if got := f.orders.All()[0].OrderID; got != first {
		t.Fatalf("expected original order %s to remain, got %s", first, got)
	}
	if len(f.dispatcher.Sent()) != sent {
		t.Fatal("expected no notifications for a replayed callback")
	}
}

func TestCreateManualStillRetriesPlainCollisions(t *testing.T) {
	f := newFixture(Options{})
	f.orders.InsertErr = store.ErrDuplicate

	_, err := f.svc.CreateManual(context.Background(), ManualOrderInput{
		Customer: customer(),
		Items:    []models.OrderItem{{ProductID: "p", Price: 1, Quantity: 1}},
	})
	if !errors.Is(err, store.ErrDuplicate) || errors.Is(err, ErrPaymentRecorded) {
		t.Fatalf("expected exhausted id retries to surface ErrDuplicate, got %v", err)
	}
}

func TestVerifyAndRecordHoldsMismatchedTotalForReview(t *testing.T) {
	logs := captureLogs(t)
	f := newFixture(Options{StrictTotals: true, TotalTolerance: 0.01})
	pid := f.catalog.Put(models.Product{Name: "Kurta", Price: 500, IsActive: true})
	sig := payment.Sign(testSecret, "order_9", "pay_9")

	in := verifyInput("order_9", "pay_9", sig)
	in.Order.Items = []models.OrderItem{{ProductID: pid, Price: 1, Quantity: 1}}
	in.Order.TotalAmount = 1

	id, err := f.svc.VerifyAndRecord(context.Background(), in)
	if err != nil {
		t.Fatalf("expected paid order to be kept, got %v", err)
	}
	order, err := f.orders.FindByOrderID(context.Background(), id)
	if err != nil {
		t.Fatalf("expected order %s to be stored: %v", id, err)
	}
	if order.PaymentStatus != models.PaymentStatusPaid || order.OrderStatus != models.OrderStatusPending {
		t.Fatalf("expected paid/pending, got %s/%s", order.PaymentStatus, order.OrderStatus)
	}
	if !strings.Contains(order.ReviewNote, "does not match catalog total 500.00") {
		t.Fatalf("unexpected review note %q", order.ReviewNote)
	}
	if order.GatewayPaymentID != "pay_9" {
		t.Fatalf("expected gateway payment id to be stored, got %q", order.GatewayPaymentID)
	}

	held := logs.FilterMessage("[PAYMENT] verified payment held for review").All()
	if len(held) != 1 || held[0].ContextMap()["gatewayPaymentId"] != "pay_9" {
		t.Fatalf("expected one error log naming pay_9, got %+v", held)
	}
}

func TestVerifyAndRecordHoldsWhenCatalogUnavailable(t *testing.T) {
	f := newFixture(Options{StrictTotals: true})
	f.catalog.Err = errors.New("mongo down")
	sig := payment.Sign(testSecret, "order_7", "pay_7")

	id, err := f.svc.VerifyAndRecord(context.Background(), verifyInput("order_7", "pay_7", sig))
	if err != nil {
		t.Fatalf("expected paid order to be kept, got %v", err)
	}
	order, _ := f.orders.FindByOrderID(context.Background(), id)
	if order.OrderStatus != models.OrderStatusPending || !strings.HasPrefix(order.ReviewNote, "total not checked:") {
		t.Fatalf("expected order held with note, got %s %q", order.OrderStatus, order.ReviewNote)
	}
}

func TestVerifyAndRecordLogsRejectedPaidCallback(t *testing.T) {
	logs := captureLogs(t)
	f := newFixture(Options{})
	sig := payment.Sign(testSecret, "order_5", "pay_5")

	in := verifyInput("order_5", "pay_5", sig)
	in.Order.Customer.Name = ""
	if _, err := f.svc.VerifyAndRecord(context.Background(), in); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	rejected := logs.FilterMessage("[PAYMENT] verified payment rejected").All()
	if len(rejected) != 1 {
		t.Fatalf("expected one rejection log, got %d", len(rejected))
	}
	fields := rejected[0].ContextMap()
	if fields["gatewayOrderId"] != "order_5" || fields["gatewayPaymentId"] != "pay_5" {
		t.Fatalf("expected gateway ids in log, got %v", fields)
	}
}

func seedOrder(t *testing.T, f *fixture, email string) string {
	t.Helper()
	c := customer()
	c.Email = email
	id, err := f.svc.CreateManual(context.Background(), ManualOrderInput{
		Customer:    c,
		Items:       []models.OrderItem{{ProductID: "p1", Price: 500, Quantity: 2}},
		TotalAmount: 1000,
	})
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return id
}

func TestUpdateStatusShippedDispatchesStatusUpdateAndInvoice(t *testing.T) {
	f := newFixture(Options{})
	id := seedOrder(t, f, "asha@example.com")
	before := len(f.dispatcher.Sent())

	order, err := f.svc.UpdateStatus(context.Background(), StatusUpdate{
		OrderID:        id,
		OrderStatus:    strPtr(models.OrderStatusShipped),
		TrackingNumber: "AWB123",
	})
	if err != nil {
		t.Fatalf("UpdateStatus returned error: %v", err)
	}
	if order.OrderStatus != models.OrderStatusShipped || order.PaymentStatus != models.PaymentStatusPending {
		t.Fatalf("expected only orderStatus to change, got %+v", order)
	}

	sent := f.dispatcher.Sent()[before:]
	if len(sent) != 2 {
		t.Fatalf("expected exactly two notifications, got %d", len(sent))
	}
	if sent[0].Kind != notify.KindStatusUpdate || sent[1].Kind != notify.KindInvoice {
		t.Fatalf("expected status_update then invoice, got %s and %s", sent[0].Kind, sent[1].Kind)
	}
	if sent[0].Data.TrackingNumber != "AWB123" {
		t.Fatalf("expected tracking number on status update, got %q", sent[0].Data.TrackingNumber)
	}
}

func TestUpdateStatusWithoutEmailSendsNothing(t *testing.T) {
	f := newFixture(Options{})
	id := seedOrder(t, f, "")
	before := len(f.dispatcher.Sent())

	if _, err := f.svc.UpdateStatus(context.Background(), StatusUpdate{OrderID: id, PaymentStatus: strPtr(models.PaymentStatusPaid)}); err != nil {
		t.Fatalf("UpdateStatus returned error: %v", err)
	}
	if len(f.dispatcher.Sent()) != before {
		t.Fatal("expected no notifications without a customer email")
	}
}

func TestUpdateStatusValidation(t *testing.T) {
	f := newFixture(Options{})
	id := seedOrder(t, f, "a@example.com")

	if _, err := f.svc.UpdateStatus(context.Background(), StatusUpdate{OrderID: id}); !IsValidation(err) {
		t.Fatalf("expected empty update to be rejected, got %v", err)
	}
	if _, err := f.svc.UpdateStatus(context.Background(), StatusUpdate{OrderID: id, OrderStatus: strPtr("teleported")}); !IsValidation(err) {
		t.Fatalf("expected invalid status to be rejected, got %v", err)
	}
	if _, err := f.svc.UpdateStatus(context.Background(), StatusUpdate{OrderID: "LC-0", OrderStatus: strPtr(models.OrderStatusShipped)}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateFromInquiryPricesFromCatalog(t *testing.T) {
	f := newFixture(Options{WhatsAppNumber: "+91 98765-43210", StoreName: "La Casa"})
	pid := f.catalog.Put(models.Product{
		Name:        "Linen Kurta",
		Code:        "KRT-07",
		Price:       1200,
		SaleEnabled: true,
		SalePrice:   999.5,
		Sizes:       models.StringList{"S", "M"},
		IsActive:    true,
	})

	res, err := f.svc.CreateFromInquiry(context.Background(), InquiryInput{
		ProductID: pid,
		Quantity:  2,
		Size:      "M",
		Customer:  customer(),
	})
	if err != nil {
		t.Fatalf("CreateFromInquiry returned error: %v", err)
	}

	order, _ := f.orders.FindByOrderID(context.Background(), res.OrderID)
	if order.TotalAmount != 1999 {
		t.Fatalf("expected total 1999, got %v", order.TotalAmount)
	}
	if order.OrderType != models.OrderTypeWhatsApp || order.PaymentStatus != models.PaymentStatusPending {
		t.Fatalf("unexpected order state: %+v", order)
	}
	if order.Items[0].Name != "Linen Kurta (M)" || order.Items[0].ProductCode != "KRT-07" {
		t.Fatalf("unexpected item snapshot: %+v", order.Items[0])
	}

	if !strings.HasPrefix(res.WhatsAppURL, "https://wa.me/919876543210?text=") {
		t.Fatalf("unexpected whatsapp url %s", res.WhatsAppURL)
	}
	parsed, err := url.Parse(res.WhatsAppURL)
	if err != nil {
		t.Fatalf("invalid url: %v", err)
	}
	if text := parsed.Query().Get("text"); !strings.Contains(text, res.OrderID) || !strings.Contains(text, "Linen Kurta (M) x2") {
		t.Fatalf("unexpected message text %q", text)
	}
}

func TestCreateFromInquiryRejectsUnavailableProduct(t *testing.T) {
	f := newFixture(Options{})
	inactive := f.catalog.Put(models.Product{Name: "Old", Price: 10, IsActive: false})
	sized := f.catalog.Put(models.Product{Name: "Sized", Price: 10, IsActive: true, Sizes: models.StringList{"S"}})

	cases := map[string]InquiryInput{
		"missing product": {ProductID: "000000000000000000000000", Quantity: 1, Customer: customer()},
		"inactive":        {ProductID: inactive, Quantity: 1, Customer: customer()},
		"size":            {ProductID: sized, Quantity: 1, Size: "XL", Customer: customer()},
		"zero quantity":   {ProductID: sized, Quantity: 0, Size: "S", Customer: customer()},
	}
	for name, in := range cases {
		if _, err := f.svc.CreateFromInquiry(context.Background(), in); !IsValidation(err) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestListValidatesFilters(t *testing.T) {
	f := newFixture(Options{})
	seedOrder(t, f, "")
	seedOrder(t, f, "")

	if _, _, err := f.svc.List(context.Background(), store.OrderFilter{OrderStatus: "bogus"}); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	orders, total, err := f.svc.List(context.Background(), store.OrderFilter{OrderStatus: models.OrderStatusPending})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if total != 2 || len(orders) != 2 {
		t.Fatalf("expected 2 orders, got total=%d len=%d", total, len(orders))
	}
}
