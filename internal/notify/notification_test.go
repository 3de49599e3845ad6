package notify

import (
	"errors"
	"strings"
	"testing"
	"time"

	"storefront/internal/models"
)

func sampleData() OrderData {
	return OrderData{
		OrderID:         "LC-1700000000000",
		CustomerName:    "Asha",
		CustomerEmail:   "asha@example.com",
		CustomerPhone:   "+919999999999",
		ShippingAddress: "12 MG Road, Pune",
		Items: []models.OrderItem{
			{ProductID: "p1", ProductCode: "KRT-01", Name: "Kurta (M)", Price: 500, Quantity: 2},
		},
		TotalAmount:   1000,
		OrderStatus:   models.OrderStatusShipped,
		PaymentStatus: models.PaymentStatusPaid,
		OrderType:     models.OrderTypeOnline,
		CreatedAt:     time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC),
	}
}

func TestValidateRequiresCustomerEmailForCustomerKinds(t *testing.T) {
	data := sampleData()
	data.CustomerEmail = ""

	for _, kind := range []Kind{KindOrderConfirmation, KindStatusUpdate, KindInvoice} {
		err := Notification{Kind: kind, Data: data}.Validate()
		if !errors.Is(err, ErrInvalidNotification) {
			t.Fatalf("%s: expected ErrInvalidNotification, got %v", kind, err)
		}
	}
	if err := (Notification{Kind: KindAdminNotification, Data: data}).Validate(); err != nil {
		t.Fatalf("admin notification should not need a customer email: %v", err)
	}
}

func TestValidateRejectsUnknownKindAndMissingFields(t *testing.T) {
	if err := (Notification{Kind: "sms", Data: sampleData()}).Validate(); err == nil {
		t.Fatal("expected unknown kind to be rejected")
	}

	data := sampleData()
	data.OrderID = ""
	data.CustomerName = " "
	err := Notification{Kind: KindInvoice, Data: data}.Validate()
	if err == nil || !strings.Contains(err.Error(), "orderId") || !strings.Contains(err.Error(), "customerName") {
		t.Fatalf("expected both missing fields in error, got %v", err)
	}

	data = sampleData()
	data.OrderStatus = ""
	data.PaymentStatus = ""
	if err := (Notification{Kind: KindStatusUpdate, Data: data}).Validate(); err == nil {
		t.Fatal("expected status update without any status to be rejected")
	}
}

func TestRenderOmitsTrackingSectionWhenAbsent(t *testing.T) {
	_, body, err := Render("La Casa", Notification{Kind: KindStatusUpdate, Data: sampleData()})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if strings.Contains(body, "Tracking number") {
		t.Fatalf("expected no tracking section, got %s", body)
	}
	if !strings.Contains(body, "Shipped") || !strings.Contains(body, "on its way") {
		t.Fatalf("expected shipped status message, got %s", body)
	}

	data := sampleData()
	data.TrackingNumber = "AWB123"
	_, body, err = Render("La Casa", Notification{Kind: KindStatusUpdate, Data: data})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if !strings.Contains(body, "AWB123") {
		t.Fatalf("expected tracking number in body, got %s", body)
	}
}

func TestRenderAllKinds(t *testing.T) {
	for _, kind := range []Kind{KindOrderConfirmation, KindStatusUpdate, KindInvoice, KindAdminNotification} {
		subject, body, err := Render("La Casa", Notification{Kind: kind, Data: sampleData()})
		if err != nil {
			t.Fatalf("%s: Render returned error: %v", kind, err)
		}
		if !strings.Contains(subject, "LC-1700000000000") {
			t.Fatalf("%s: expected order id in subject, got %q", kind, subject)
		}
		if !strings.Contains(body, "LC-1700000000000") || !strings.Contains(body, "₹1000.00") {
			t.Fatalf("%s: expected order id and total in body, got %s", kind, body)
		}
	}
}

func TestRenderEscapesCustomerInput(t *testing.T) {
	data := sampleData()
	data.CustomerName = "<script>alert(1)</script>"
	_, body, err := Render("La Casa", Notification{Kind: KindOrderConfirmation, Data: data})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if strings.Contains(body, "<script>") {
		t.Fatalf("expected customer name to be escaped, got %s", body)
	}
}

func TestFromOrderCopiesFields(t *testing.T) {
	order := &models.Order{
		OrderID:       "LC-1",
		CustomerName:  "Ravi",
		CustomerEmail: "ravi@example.com",
		TotalAmount:   10,
		OrderStatus:   models.OrderStatusPending,
	}
	n := FromOrder(KindInvoice, order)
	if n.Kind != KindInvoice || n.Data.OrderID != "LC-1" || n.Data.CustomerEmail != "ravi@example.com" || n.Data.TotalAmount != 10 {
		t.Fatalf("unexpected notification: %+v", n)
	}
}
