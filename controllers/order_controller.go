package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"grocery-order-service/address"
	"grocery-order-service/middlewares"
	"grocery-order-service/models"
	"grocery-order-service/rabbitmq"
	"grocery-order-service/store"
	"grocery-order-service/vnpay"

	"github.com/gin-gonic/gin"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// OrderLedger is the slice of the order store the controllers need.
type OrderLedger interface {
	CreateOrder(ctx context.Context, items []models.OrderLineItem) error
	ListOrderGroups(ctx context.Context, userID, page, limit int) ([]models.OrderGroup, int, error)
	GetOrderGroup(ctx context.Context, userID int, orderID string) (*models.OrderGroup, error)
	CancelOrderGroup(ctx context.Context, userID int, orderID string) error
	MarkPaid(ctx context.Context, orderID, transactionNo string) error
	FailPayment(ctx context.Context, orderID string) error
	PaymentInfo(ctx context.Context, orderID string) (*models.PaymentInfo, error)
}

// CartStore clears a user's cart once their checkout has been persisted.
type CartStore interface {
	Clear(ctx context.Context, userID int) error
}

// AddressStore resolves delivery addresses owned by the user service.
type AddressStore interface {
	Get(ctx context.Context, id string) (*models.Address, error)
}

var (
	ledger    OrderLedger
	carts     CartStore
	addresses AddressStore
	payments  *vnpay.Client
	rabbitMQ  *rabbitmq.RabbitMQ
)

func SetLedger(l OrderLedger) { ledger = l }

func SetCartStore(c CartStore) { carts = c }

func SetAddressStore(a AddressStore) { addresses = a }

func SetPaymentClient(p *vnpay.Client) { payments = p }

func SetRabbitMQ(rmq *rabbitmq.RabbitMQ) { rabbitMQ = rmq }

// Orders above this total (VND) get high-priority events.
const highValueOrderThreshold = 1_000_000

func CreateOrder(c *gin.Context) {
	defer func() {
		ok := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOrderOperation("create", ok)
	}()
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// An unknown address rejects the checkout before anything is written.
	if addresses != nil {
		if _, err := addresses.Get(c.Request.Context(), req.AddressID); err != nil {
			if errors.Is(err, address.ErrAddressNotFound) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown delivery address"})
				return
			}
			log.Printf("Failed to resolve address %s: %v", req.AddressID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate delivery address"})
			return
		}
	}

	suffix, err := gonanoid.New(10)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate order id"})
		return
	}
	orderID := "YM-" + suffix

	var totalAmount float64
	items := make([]models.OrderLineItem, 0, len(req.Products))
	for _, p := range req.Products {
		itemTotal := p.Price * float64(p.Quantity)
		totalAmount += itemTotal
		items = append(items, models.OrderLineItem{
			OrderID:           orderID,
			UserID:            userID.(int),
			ProductID:         p.ProductID,
			ProductName:       p.Name,
			ProductImage:      p.Image,
			Quantity:          p.Quantity,
			PricePerUnit:      p.Price,
			ItemTotal:         itemTotal,
			PaymentMethod:     req.PaymentMethod,
			PaymentStatus:     models.PaymentPending,
			OrderStatus:       models.OrderProcessing,
			DeliveryAddressID: req.AddressID,
		})
	}

	if err := ledger.CreateOrder(c.Request.Context(), items); err != nil {
		log.Printf("Failed to create order %s: %v", orderID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order"})
		return
	}

	// The checkout is committed; an unclearable cart is only worth a log line.
	if carts != nil {
		if err := carts.Clear(c.Request.Context(), userID.(int)); err != nil {
			log.Printf("Failed to clear cart for user %d: %v", userID.(int), err)
		}
	}

	if rabbitMQ != nil {
		priority := 5
		if totalAmount > highValueOrderThreshold {
			priority = 9
		}
		event := models.OrderEvent{
			OrderID:  orderID,
			UserID:   userID.(int),
			Type:     "created",
			Total:    totalAmount,
			Occurred: time.Now(),
		}
		if err := rabbitMQ.PublishOrderEvent(event, priority); err != nil {
			log.Printf("Failed to publish order created event: %v", err)
		}

		if req.PaymentMethod == models.PaymentOnline {
			check := event
			check.Type = "payment_check"
			if err := rabbitMQ.PublishDelayedEvent(check, vnpay.PaymentWindow); err != nil {
				log.Printf("Failed to publish delayed payment check event: %v", err)
			}
		}
	}

	if req.PaymentMethod == models.PaymentOnline {
		paymentURL, err := payments.BuildPaymentURL(
			orderID,
			totalAmount,
			"Payment for order "+orderID,
			c.ClientIP(),
			"",
		)
		if err != nil {
			log.Printf("Failed to build payment URL for order %s: %v", orderID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create payment URL"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Order created, redirecting to payment",
			"data": gin.H{
				"orderId":       orderID,
				"totalAmount":   totalAmount,
				"paymentMethod": req.PaymentMethod,
				"paymentUrl":    paymentURL,
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order placed successfully",
		"data": gin.H{
			"orderId":       orderID,
			"totalAmount":   totalAmount,
			"paymentMethod": req.PaymentMethod,
			"items":         items,
		},
	})
}

func GetUserOrders(c *gin.Context) {
	defer func() {
		ok := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOrderOperation("list", ok)
	}()
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "6"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 6
	}

	groups, total, err := ledger.ListOrderGroups(c.Request.Context(), userID.(int), page, limit)
	if err != nil {
		log.Printf("Failed to list orders for user %d: %v", userID.(int), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load orders"})
		return
	}

	for i := range groups {
		attachAddress(c.Request.Context(), &groups[i])
	}

	totalPages := (total + limit - 1) / limit
	c.JSON(http.StatusOK, gin.H{
		"data": groups,
		"pagination": models.Pagination{
			CurrentPage: page,
			TotalPages:  totalPages,
			TotalOrders: total,
			Limit:       limit,
		},
	})
}

func GetOrderDetail(c *gin.Context) {
	defer func() {
		ok := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOrderOperation("detail", ok)
	}()
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	orderID := c.Param("orderId")
	if orderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Order id is required"})
		return
	}

	group, err := ledger.GetOrderGroup(c.Request.Context(), userID.(int), orderID)
	if errors.Is(err, store.ErrOrderNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	if err != nil {
		log.Printf("Failed to load order %s: %v", orderID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load order"})
		return
	}

	attachAddress(c.Request.Context(), group)
	c.JSON(http.StatusOK, gin.H{"data": group})
}

// attachAddress resolves the group's shared delivery address. A since-deleted
// address never hides the order itself; the projection just goes out without it.
func attachAddress(ctx context.Context, group *models.OrderGroup) {
	if addresses == nil {
		return
	}
	addr, err := addresses.Get(ctx, group.DeliveryAddressID)
	if err != nil {
		if !errors.Is(err, address.ErrAddressNotFound) {
			log.Printf("Failed to load address %s for order %s: %v", group.DeliveryAddressID, group.OrderID, err)
		}
		return
	}
	group.Address = addr
}

func CancelOrder(c *gin.Context) {
	defer func() {
		ok := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOrderOperation("cancel", ok)
	}()
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req models.CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := ledger.CancelOrderGroup(c.Request.Context(), userID.(int), req.OrderID)
	switch {
	case errors.Is(err, store.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	case errors.Is(err, store.ErrCannotCancel):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Order cannot be cancelled in its current state"})
		return
	case err != nil:
		log.Printf("Failed to cancel order %s: %v", req.OrderID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel order"})
		return
	}

	if rabbitMQ != nil {
		event := models.OrderEvent{
			OrderID:  req.OrderID,
			UserID:   userID.(int),
			Type:     "cancelled",
			Occurred: time.Now(),
		}
		if err := rabbitMQ.PublishOrderEvent(event, 8); err != nil {
			log.Printf("Failed to publish order cancelled event: %v", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order cancelled",
		"data":    gin.H{"orderId": req.OrderID, "status": models.OrderCancelled},
	})
}
