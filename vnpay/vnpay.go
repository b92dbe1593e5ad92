package vnpay

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strings"
	"time"

	"grocery-order-service/config"
)

// PaymentWindow is how long a generated payment request stays valid.
// Requests older than this are rejected by the provider itself.
const PaymentWindow = 15 * time.Minute

const timestampLayout = "20060102150405"

var ErrMissingCredentials = errors.New("vnpay: merchant credentials not configured")

// Client builds signed redirect URLs for the VNPay payment gateway and
// verifies the signature on its return callbacks.
type Client struct {
	TmnCode    string
	HashSecret string
	PayURL     string
	ReturnURL  string
}

func NewClient(cfg *config.Config) (*Client, error) {
	if cfg.VNPTmnCode == "" || cfg.VNPHashSecret == "" {
		return nil, ErrMissingCredentials
	}
	return &Client{
		TmnCode:    cfg.VNPTmnCode,
		HashSecret: cfg.VNPHashSecret,
		PayURL:     cfg.VNPPayURL,
		ReturnURL:  cfg.VNPReturnURL,
	}, nil
}

// canonicalQuery serializes params as key=value&... with keys sorted
// lexicographically and values form-encoded (space becomes '+'). The
// signature fields themselves are never part of the signed payload.
// Signing and verification must produce byte-identical strings here or
// interop with the provider breaks.
func canonicalQuery(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "vnp_SecureHash" || k == "vnp_SecureHashType" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[k]))
	}
	return b.String()
}

// SignParams computes the lowercase hex HMAC-SHA512 of the canonicalized
// parameter map.
func SignParams(params map[string]string, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(canonicalQuery(params)))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyParams recomputes the signature over params (minus the signature
// fields) and compares it to receivedSig in constant time.
func VerifyParams(params map[string]string, receivedSig, secret string) bool {
	if receivedSig == "" {
		return false
	}
	expected := SignParams(params, secret)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(receivedSig)))
}

// BuildPaymentURL produces the signed redirect URL for one payment attempt.
// amount is in major units (VND); the provider wants minor units, so it is
// multiplied by 100 and rounded to kill any floating point residue.
func (c *Client) BuildPaymentURL(orderID string, amount float64, orderInfo, ipAddr, returnURL string) (string, error) {
	if c.TmnCode == "" || c.HashSecret == "" {
		return "", ErrMissingCredentials
	}
	if amount < 0 {
		return "", fmt.Errorf("vnpay: negative amount %v for order %s", amount, orderID)
	}
	if returnURL == "" {
		returnURL = c.ReturnURL
	}

	now := time.Now()
	params := map[string]string{
		"vnp_Version":    "2.1.0",
		"vnp_Command":    "pay",
		"vnp_TmnCode":    c.TmnCode,
		"vnp_Locale":     "vn",
		"vnp_CurrCode":   "VND",
		"vnp_TxnRef":     orderID,
		"vnp_OrderInfo":  orderInfo,
		"vnp_OrderType":  "other",
		"vnp_Amount":     fmt.Sprintf("%d", int64(math.Round(amount*100))),
		"vnp_ReturnUrl":  returnURL,
		"vnp_IpAddr":     ipAddr,
		"vnp_CreateDate": now.Format(timestampLayout),
		"vnp_ExpireDate": now.Add(PaymentWindow).Format(timestampLayout),
	}

	query := canonicalQuery(params)
	mac := hmac.New(sha512.New, []byte(c.HashSecret))
	mac.Write([]byte(query))
	signature := hex.EncodeToString(mac.Sum(nil))

	return c.PayURL + "?" + query + "&vnp_SecureHash=" + signature, nil
}

// VerifyReturn checks the signature on a provider callback's query
// parameters.
func (c *Client) VerifyReturn(params map[string]string) bool {
	return VerifyParams(params, params["vnp_SecureHash"], c.HashSecret)
}
