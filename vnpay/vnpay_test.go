package vnpay

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"grocery-order-service/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "VNPAYTESTSECRET"

func testClient() *Client {
	return &Client{
		TmnCode:    "TESTTMN",
		HashSecret: testSecret,
		PayURL:     "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		ReturnURL:  "https://shop.example.com/api/payment/vnpay-return",
	}
}

func TestCanonicalQuerySortsAndEncodes(t *testing.T) {
	params := map[string]string{
		"vnp_OrderInfo":  "Payment for order YM-1",
		"vnp_TxnRef":     "YM-1",
		"vnp_Amount":     "5000000",
		"vnp_SecureHash": "should-be-skipped",
	}
	got := canonicalQuery(params)
	assert.Equal(t, "vnp_Amount=5000000&vnp_OrderInfo=Payment+for+order+YM-1&vnp_TxnRef=YM-1", got)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	params := map[string]string{
		"vnp_Version":   "2.1.0",
		"vnp_Command":   "pay",
		"vnp_TmnCode":   "TESTTMN",
		"vnp_TxnRef":    "YM-abc123XYZ",
		"vnp_Amount":    "5000000",
		"vnp_OrderInfo": "Payment for order YM-abc123XYZ",
		"vnp_IpAddr":    "203.0.113.7",
	}

	sig := SignParams(params, testSecret)
	assert.Len(t, sig, 128) // hex SHA-512
	assert.Equal(t, strings.ToLower(sig), sig)
	assert.True(t, VerifyParams(params, sig, testSecret))

	// Flipping any single value breaks verification.
	for key, original := range params {
		params[key] = original + "x"
		assert.False(t, VerifyParams(params, sig, testSecret), "mutated %s still verified", key)
		params[key] = original
	}

	assert.False(t, VerifyParams(params, sig, "wrong-secret"))
	assert.False(t, VerifyParams(params, "", testSecret))
}

func TestVerifyIgnoresSignatureFields(t *testing.T) {
	params := map[string]string{
		"vnp_TxnRef": "YM-1",
		"vnp_Amount": "100",
	}
	sig := SignParams(params, testSecret)

	// The provider echoes the signature fields in the callback query.
	params["vnp_SecureHash"] = sig
	params["vnp_SecureHashType"] = "HmacSHA512"
	assert.True(t, VerifyParams(params, sig, testSecret))
}

func TestVerifyAcceptsUppercaseHex(t *testing.T) {
	params := map[string]string{"vnp_TxnRef": "YM-1"}
	sig := SignParams(params, testSecret)
	assert.True(t, VerifyParams(params, strings.ToUpper(sig), testSecret))
}

func TestBuildPaymentURL(t *testing.T) {
	client := testClient()
	raw, err := client.BuildPaymentURL("YM-abc123XYZ", 50000, "Payment for order YM-abc123XYZ", "203.0.113.7", "")
	require.NoError(t, err)

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "sandbox.vnpayment.vn", parsed.Host)

	q := parsed.Query()
	assert.Equal(t, "YM-abc123XYZ", q.Get("vnp_TxnRef"))
	assert.Equal(t, "5000000", q.Get("vnp_Amount")) // x100 minor units
	assert.Equal(t, "TESTTMN", q.Get("vnp_TmnCode"))
	assert.Equal(t, "VND", q.Get("vnp_CurrCode"))
	assert.Equal(t, client.ReturnURL, q.Get("vnp_ReturnUrl"))

	// The signature must cover every non-signature field in the URL.
	params := map[string]string{}
	for key := range q {
		params[key] = q.Get(key)
	}
	assert.True(t, VerifyParams(params, q.Get("vnp_SecureHash"), testSecret))

	created, err := time.Parse(timestampLayout, q.Get("vnp_CreateDate"))
	require.NoError(t, err)
	expires, err := time.Parse(timestampLayout, q.Get("vnp_ExpireDate"))
	require.NoError(t, err)
	assert.Equal(t, PaymentWindow, expires.Sub(created))
}

func TestBuildPaymentURLExplicitReturnURL(t *testing.T) {
	client := testClient()
	raw, err := client.BuildPaymentURL("YM-1", 1000, "info", "127.0.0.1", "https://other.example.com/result")
	require.NoError(t, err)

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "https://other.example.com/result", parsed.Query().Get("vnp_ReturnUrl"))
}

func TestBuildPaymentURLRoundsMinorUnits(t *testing.T) {
	client := testClient()

	// 0.1+0.2 carries float residue; the minor-unit amount must not.
	raw, err := client.BuildPaymentURL("YM-1", 0.1+0.2, "info", "127.0.0.1", "")
	require.NoError(t, err)
	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "30", parsed.Query().Get("vnp_Amount"))
}

func TestBuildPaymentURLRejectsNegativeAmount(t *testing.T) {
	client := testClient()
	_, err := client.BuildPaymentURL("YM-1", -1, "info", "127.0.0.1", "")
	assert.Error(t, err)
}

func TestBuildPaymentURLMissingCredentials(t *testing.T) {
	client := &Client{PayURL: "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"}
	_, err := client.BuildPaymentURL("YM-1", 1000, "info", "127.0.0.1", "")
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(&config.Config{VNPTmnCode: "TESTTMN"})
	assert.ErrorIs(t, err, ErrMissingCredentials)

	_, err = NewClient(&config.Config{VNPHashSecret: testSecret})
	assert.ErrorIs(t, err, ErrMissingCredentials)

	client, err := NewClient(&config.Config{VNPTmnCode: "TESTTMN", VNPHashSecret: testSecret})
	require.NoError(t, err)
	assert.Equal(t, "TESTTMN", client.TmnCode)
}
