package vnpay

import "fmt"

const ResponseCodeSuccess = "00"

// responseMessages maps the provider's vnp_ResponseCode values to
// user-facing reasons. New codes are additive here; anything unknown
// falls through to a generic message.
var responseMessages = map[string]string{
	"00": "Transaction successful",
	"07": "Amount deducted but the transaction is flagged as suspicious",
	"09": "Card or account is not registered for internet banking",
	"10": "Card or account information was entered incorrectly more than 3 times",
	"11": "Payment window expired, please try the transaction again",
	"12": "Card or account is locked",
	"13": "Incorrect transaction OTP, please try the transaction again",
	"24": "Transaction cancelled by the customer",
	"51": "Insufficient funds in the account",
	"65": "Daily transaction limit exceeded",
	"75": "The paying bank is under maintenance",
	"79": "Incorrect payment password entered too many times",
	"99": "Unclassified provider error",
}

func IsSuccess(responseCode string) bool {
	return responseCode == ResponseCodeSuccess
}

func ResponseMessage(responseCode string) string {
	if msg, ok := responseMessages[responseCode]; ok {
		return msg
	}
	return fmt.Sprintf("Unknown error (%s)", responseCode)
}
