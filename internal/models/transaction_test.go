package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransactionTypeValid(t *testing.T) {
	for _, typ := range []TransactionType{TypeDeposit, TypeWithdrawal, TypeFee, TypeSend, TypeReceive} {
		assert.True(t, typ.Valid(), "%s should be valid", typ)
	}
	assert.False(t, TransactionType("refund").Valid())
	assert.False(t, TransactionType("").Valid())
}

func TestTransactionStatus(t *testing.T) {
	for _, status := range []TransactionStatus{StatusPending, StatusCompleted, StatusFailed} {
		assert.True(t, status.Valid(), "%s should be valid", status)
	}
	assert.False(t, TransactionStatus("cancelled").Valid())

	assert.False(t, StatusPending.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
}
