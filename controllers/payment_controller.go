package controllers

import (
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"grocery-order-service/middlewares"
	"grocery-order-service/models"
	"grocery-order-service/store"
	"grocery-order-service/vnpay"

	"github.com/gin-gonic/gin"
)

var frontendURL string

func SetFrontendURL(u string) { frontendURL = u }

// CreatePaymentURL re-issues a payment URL for an existing online order,
// the retry path after a declined or expired attempt.
func CreatePaymentURL(c *gin.Context) {
	defer func() {
		ok := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOrderOperation("payment_url", ok)
	}()

	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req models.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, err := ledger.GetOrderGroup(c.Request.Context(), userID.(int), req.OrderID)
	if errors.Is(err, store.ErrOrderNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	if err != nil {
		log.Printf("Failed to load order %s: %v", req.OrderID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load order"})
		return
	}
	if group.PaymentMethod != models.PaymentOnline {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Order is not an online payment order"})
		return
	}
	if group.PaymentStatus == models.PaymentPaid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Order has already been paid"})
		return
	}

	orderInfo := req.OrderInfo
	if orderInfo == "" {
		orderInfo = "Payment for order " + req.OrderID
	}

	// The signed amount is the ledger's stored total, never client input.
	paymentURL, err := payments.BuildPaymentURL(req.OrderID, group.TotalAmount, orderInfo, c.ClientIP(), "")
	if err != nil {
		log.Printf("Failed to build payment URL for order %s: %v", req.OrderID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create payment URL"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment URL created",
		"data":    gin.H{"paymentUrl": paymentURL},
	})
}

// VNPayReturn handles the provider's signed redirect after the shopper
// finishes (or abandons) payment. It never trusts the parameters before
// the signature checks out, applies the outcome to the whole order group,
// and sends the browser to the frontend result page with machine-readable
// outcome parameters. The result page re-queries CheckPaymentStatus for
// the authoritative state.
func VNPayReturn(c *gin.Context) {
	params := map[string]string{}
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	if payments == nil || !payments.VerifyReturn(params) {
		// Untrusted input: no state change, no hint about which check failed.
		log.Printf("Rejected payment callback with invalid signature for ref %q", params["vnp_TxnRef"])
		middlewares.RecordPaymentCallback("invalid_signature")
		redirectResult(c, url.Values{"status": {"error"}})
		return
	}

	orderID := params["vnp_TxnRef"]
	responseCode := params["vnp_ResponseCode"]

	if !vnpay.IsSuccess(responseCode) {
		err := ledger.FailPayment(c.Request.Context(), orderID)
		if errors.Is(err, store.ErrOrderNotFound) {
			middlewares.RecordPaymentCallback("order_not_found")
			redirectResult(c, url.Values{"status": {"error"}, "code": {"order_not_found"}})
			return
		}
		if err != nil {
			log.Printf("Failed to record failed payment for order %s: %v", orderID, err)
			middlewares.RecordPaymentCallback("store_error")
			redirectResult(c, url.Values{"status": {"error"}})
			return
		}

		// FailPayment is a no-op once the payment has settled; a replayed
		// failure callback must then report the paid state, not a failure.
		if info, infoErr := ledger.PaymentInfo(c.Request.Context(), orderID); infoErr == nil && info.PaymentStatus == models.PaymentPaid {
			middlewares.RecordPaymentCallback("already_paid")
			redirectResult(c, url.Values{"status": {"success"}, "orderId": {orderID}})
			return
		}

		log.Printf("Payment failed for order %s: %s (%s)", orderID, vnpay.ResponseMessage(responseCode), responseCode)
		middlewares.RecordPaymentCallback("failed")
		redirectResult(c, url.Values{
			"status":  {"failed"},
			"orderId": {orderID},
			"code":    {responseCode},
		})
		return
	}

	err := ledger.MarkPaid(c.Request.Context(), orderID, params["vnp_TransactionNo"])
	switch {
	case errors.Is(err, store.ErrOrderNotFound):
		middlewares.RecordPaymentCallback("order_not_found")
		redirectResult(c, url.Values{"status": {"error"}, "code": {"order_not_found"}})
		return
	case errors.Is(err, store.ErrPaymentConflict):
		middlewares.RecordPaymentCallback("state_conflict")
		redirectResult(c, url.Values{
			"status":  {"failed"},
			"orderId": {orderID},
			"code":    {"state_conflict"},
		})
		return
	case err != nil:
		log.Printf("Failed to apply payment for order %s: %v", orderID, err)
		middlewares.RecordPaymentCallback("store_error")
		redirectResult(c, url.Values{"status": {"error"}})
		return
	}

	middlewares.RecordPaymentCallback("success")
	values := url.Values{
		"status":  {"success"},
		"orderId": {orderID},
	}
	if minor, err := strconv.ParseInt(params["vnp_Amount"], 10, 64); err == nil {
		values.Set("amount", strconv.FormatInt(minor/100, 10))
	}
	redirectResult(c, values)
}

// CheckPaymentStatus serves the authoritative payment state for the
// frontend result page.
func CheckPaymentStatus(c *gin.Context) {
	defer func() {
		ok := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOrderOperation("payment_status", ok)
	}()

	orderID := c.Param("orderId")
	if orderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Order id is required"})
		return
	}

	info, err := ledger.PaymentInfo(c.Request.Context(), orderID)
	if errors.Is(err, store.ErrOrderNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	if err != nil {
		log.Printf("Failed to load payment info for order %s: %v", orderID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load payment status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": info})
}

func redirectResult(c *gin.Context, values url.Values) {
	c.Redirect(http.StatusFound, frontendURL+"/payment-result?"+values.Encode())
}
