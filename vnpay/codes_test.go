package vnpay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSuccess(t *testing.T) {
	assert.True(t, IsSuccess("00"))
	assert.False(t, IsSuccess("24"))
	assert.False(t, IsSuccess(""))
}

func TestResponseMessage(t *testing.T) {
	assert.Equal(t, "Transaction cancelled by the customer", ResponseMessage("24"))
	assert.Equal(t, "Insufficient funds in the account", ResponseMessage("51"))
	assert.Equal(t, "Unknown error (42)", ResponseMessage("42"))
}
