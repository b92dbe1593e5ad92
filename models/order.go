package models

import (
	"time"
)

type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "COD"
	PaymentOnline PaymentMethod = "Online"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "Pending"
	PaymentPaid     PaymentStatus = "Paid"
	PaymentFailed   PaymentStatus = "Failed"
	PaymentRefunded PaymentStatus = "Refunded"
)

type OrderStatus string

const (
	OrderProcessing OrderStatus = "Processing"
	OrderConfirmed  OrderStatus = "Confirmed"
	OrderShipped    OrderStatus = "Shipped"
	OrderDelivered  OrderStatus = "Delivered"
	OrderCancelled  OrderStatus = "Cancelled"
)

// orderTransitions is the full order lifecycle. Cancellation is only
// reachable from Processing; every other transition moves forward.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderProcessing: {OrderConfirmed, OrderCancelled},
	OrderConfirmed:  {OrderShipped},
	OrderShipped:    {OrderDelivered},
	OrderDelivered:  {},
	OrderCancelled:  {},
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OrderLineItem is one purchased product within a checkout. All line items
// of one checkout share the same OrderID and always carry identical
// status fields, because status changes are applied to the whole group.
type OrderLineItem struct {
	ID                int64         `json:"id"`
	OrderID           string        `json:"orderId"`
	UserID            int           `json:"userId"`
	ProductID         string        `json:"productId"`
	ProductName       string        `json:"productName"`
	ProductImage      string        `json:"productImage"`
	Quantity          int           `json:"quantity"`
	PricePerUnit      float64       `json:"pricePerUnit"`
	ItemTotal         float64       `json:"itemTotal"`
	PaymentMethod     PaymentMethod `json:"paymentMethod"`
	PaymentStatus     PaymentStatus `json:"paymentStatus"`
	OrderStatus       OrderStatus   `json:"orderStatus"`
	DeliveryAddressID string        `json:"deliveryAddressId"`
	PaymentID         string        `json:"paymentId"`
	PaymentDate       *time.Time    `json:"paymentDate"`
	CreatedAt         time.Time     `json:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt"`
}

// OrderGroup is the order-level projection of one checkout: all line items
// sharing an orderId flattened into totals and the shared status fields.
// It is derived at read time, never stored. Address is resolved from the
// address collaborator when the projection is served; it stays nil if the
// address has since been deleted.
type OrderGroup struct {
	OrderID           string          `json:"orderId"`
	CreatedAt         time.Time       `json:"createdAt"`
	Status            OrderStatus     `json:"status"`
	PaymentStatus     PaymentStatus   `json:"paymentStatus"`
	PaymentMethod     PaymentMethod   `json:"paymentMethod"`
	DeliveryAddressID string          `json:"deliveryAddressId"`
	Address           *Address        `json:"address,omitempty"`
	TotalAmount       float64         `json:"totalAmount"`
	Items             []OrderLineItem `json:"items"`
}

// Address is the address collaborator's view of a delivery address. The
// order subsystem stores only the id and resolves the rest on read.
type Address struct {
	ID          string `json:"id"`
	AddressLine string `json:"addressLine"`
	City        string `json:"city"`
	State       string `json:"state"`
	Pincode     string `json:"pincode"`
	Country     string `json:"country"`
	Mobile      string `json:"mobile"`
}

type ProductInput struct {
	ProductID string  `json:"productId" binding:"required"`
	Name      string  `json:"name" binding:"required"`
	Image     string  `json:"image"`
	Quantity  int     `json:"quantity" binding:"required,min=1"`
	Price     float64 `json:"price" binding:"min=0"`
}

type CreateOrderRequest struct {
	AddressID     string         `json:"addressId" binding:"required"`
	PaymentMethod PaymentMethod  `json:"paymentMethod" binding:"required,oneof=COD Online"`
	Products      []ProductInput `json:"products" binding:"required,min=1,dive"`
}

type CancelOrderRequest struct {
	OrderID string `json:"orderId" binding:"required"`
}

// CreatePaymentRequest carries no amount: the signed amount is always
// derived from the order's stored total.
type CreatePaymentRequest struct {
	OrderID   string `json:"orderId" binding:"required"`
	OrderInfo string `json:"orderInfo"`
}

type Pagination struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	TotalOrders int `json:"totalOrders"`
	Limit       int `json:"limit"`
}

// PaymentInfo is the payment-status view served to the result page, which
// re-queries it rather than trusting redirect parameters.
type PaymentInfo struct {
	OrderID       string        `json:"orderId"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	OrderStatus   OrderStatus   `json:"orderStatus"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	PaymentID     string        `json:"paymentId"`
}

type OrderEvent struct {
	OrderID  string    `json:"order_id"`
	UserID   int       `json:"user_id"`
	Type     string    `json:"type"` // created, paid, cancelled, payment_check
	Total    float64   `json:"total"`
	Occurred time.Time `json:"occurred"`
}
