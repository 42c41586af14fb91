package token

import (
	"context"
	"errors"
	"testing"

	"harvest-backend/internal/domain"
	"harvest-backend/internal/infrastructure/database"
	"harvest-backend/internal/pkg/constants"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000b0")
	vault = common.HexToAddress("0x00000000000000000000000000000000000000e5")
)

func setupTokenTest(t *testing.T) (*Service, *gorm.DB) {
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return &Service{Ledger: &database.Ledger{DB: db}}, db
}

func balance(t *testing.T, svc *Service, account common.Address) uint64 {
	b, err := svc.BalanceOf(context.Background(), account)
	require.NoError(t, err)
	return b
}

func TestMintAndTransfer(t *testing.T) {
	svc, _ := setupTokenTest(t)
	ctx := context.Background()

	assert.Zero(t, balance(t, svc, alice))
	require.NoError(t, svc.Mint(ctx, alice, 5000))
	require.NoError(t, svc.Mint(ctx, alice, 1000))
	assert.Equal(t, uint64(6000), balance(t, svc, alice))

	require.NoError(t, svc.Transfer(ctx, alice, bob, 2500))
	assert.Equal(t, uint64(3500), balance(t, svc, alice))
	assert.Equal(t, uint64(2500), balance(t, svc, bob))

	err := svc.Transfer(ctx, alice, bob, 3501)
	assert.True(t, errors.Is(err, ErrInsufficientBalance))
	assert.Equal(t, uint64(3500), balance(t, svc, alice))
}

func TestMint_Rejections(t *testing.T) {
	svc, _ := setupTokenTest(t)
	ctx := context.Background()

	assert.True(t, errors.Is(svc.Mint(ctx, common.Address{}, 1), ErrInvalidAccount))
	assert.True(t, errors.Is(svc.Mint(ctx, alice, 0), ErrInvalidAmount))
	assert.True(t, errors.Is(svc.Mint(ctx, alice, 1<<63), ErrBalanceOverflow))
}

func TestTransferFrom_ConsumesAllowance(t *testing.T) {
	svc, _ := setupTokenTest(t)
	ctx := context.Background()
	require.NoError(t, svc.Mint(ctx, alice, 10000))
	require.NoError(t, svc.Approve(ctx, alice, vault, 4000))

	err := svc.TransferFrom(ctx, vault, alice, vault, 4001)
	assert.True(t, errors.Is(err, ErrInsufficientAllowance))

	require.NoError(t, svc.TransferFrom(ctx, vault, alice, vault, 3000))
	left, err := svc.Allowance(ctx, alice, vault)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), left)
	assert.Equal(t, uint64(7000), balance(t, svc, alice))
	assert.Equal(t, uint64(3000), balance(t, svc, vault))

	require.NoError(t, svc.Approve(ctx, alice, vault, 500))
	left, err = svc.Allowance(ctx, alice, vault)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), left)
}

func TestTransferFrom_InsufficientBalanceKeepsAllowance(t *testing.T) {
	svc, _ := setupTokenTest(t)
	ctx := context.Background()
	require.NoError(t, svc.Mint(ctx, alice, 100))
	require.NoError(t, svc.Approve(ctx, alice, vault, 1000))

	err := svc.TransferFrom(ctx, vault, alice, vault, 500)
	assert.True(t, errors.Is(err, ErrInsufficientBalance))

	left, err := svc.Allowance(ctx, alice, vault)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), left)
}

func TestAccount_RefusalIsFalse(t *testing.T) {
	svc, _ := setupTokenTest(t)
	ctx := context.Background()
	acct := &Account{Tokens: svc, Holder: vault}
	require.NoError(t, svc.Mint(ctx, alice, 800))
	require.NoError(t, svc.Approve(ctx, alice, vault, 800))

	ok, err := acct.TransferFrom(ctx, alice, vault, 900)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = acct.TransferFrom(ctx, alice, vault, 800)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = acct.Transfer(ctx, bob, 300)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(500), balance(t, svc, vault))

	ok, err = acct.Transfer(ctx, bob, 501)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTransfer_EmitsEvents(t *testing.T) {
	svc, db := setupTokenTest(t)
	ctx := context.Background()
	require.NoError(t, svc.Mint(ctx, alice, 50))
	require.NoError(t, svc.Transfer(ctx, alice, bob, 20))

	var events []domain.LedgerEvent
	require.NoError(t, db.Order("seq ASC").Find(&events).Error)
	require.Len(t, events, 2)
	assert.Equal(t, constants.EventTokensMinted, events[0].EventType)
	assert.Equal(t, constants.EventTokensTransferred, events[1].EventType)
	assert.Equal(t, alice.Hex(), events[1].Subject)
}
