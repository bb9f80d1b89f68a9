package ledger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/wnt/walletd/internal/models"
)

func TestWithdrawRequestValidate(t *testing.T) {
	valid := WithdrawRequest{
		WalletIDs: []uuid.UUID{uuid.New()},
		Amount:    decimal.NewFromInt(10),
		Address:   "0x52908400098527886E0F7030069857D2E4169EE7",
		Network:   "eth",
	}
	assert.NoError(t, valid.Validate())

	noWallets := valid
	noWallets.WalletIDs = nil
	assert.ErrorIs(t, noWallets.Validate(), models.ErrWalletNotFound)

	zeroAmount := valid
	zeroAmount.Amount = decimal.Zero
	assert.ErrorIs(t, zeroAmount.Validate(), models.ErrInvalidAmount)

	noNetwork := valid
	noNetwork.Network = ""
	assert.ErrorIs(t, noNetwork.Validate(), models.ErrMissingDestination)

	badAddress := valid
	badAddress.Address = "0x1234"
	assert.ErrorIs(t, badAddress.Validate(), models.ErrMissingDestination)
}

func TestSendRequestValidate(t *testing.T) {
	valid := SendRequest{
		WalletID: uuid.New(),
		Amount:   decimal.NewFromInt(1),
		Address:  "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM",
		Network:  "solana",
	}
	assert.NoError(t, valid.Validate())

	nilWallet := valid
	nilWallet.WalletID = uuid.Nil
	assert.ErrorIs(t, nilWallet.Validate(), models.ErrWalletNotFound)

	negative := valid
	negative.Amount = decimal.NewFromInt(-1)
	assert.ErrorIs(t, negative.Validate(), models.ErrInvalidAmount)
}

func TestReceiveRequestValidate(t *testing.T) {
	valid := ReceiveRequest{WalletID: uuid.New(), Amount: decimal.NewFromInt(1)}
	assert.NoError(t, valid.Validate())

	zero := valid
	zero.Amount = decimal.Zero
	assert.ErrorIs(t, zero.Validate(), models.ErrInvalidAmount)
}
