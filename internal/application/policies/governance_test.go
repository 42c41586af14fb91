package policies

import (
	"context"
	"errors"
	"testing"

	"harvest-backend/internal/pkg/apperr"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var (
	governance = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	outsider   = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

func TestAddressAuthorizer(t *testing.T) {
	ctx := context.Background()
	auth := AddressAuthorizer{Governance: governance}

	assert.NoError(t, auth.Authorize(ctx, ActionVerifyFarmer, Caller{Account: governance}))

	err := auth.Authorize(ctx, ActionVerifyFarmer, Caller{Account: outsider})
	assert.True(t, errors.Is(err, ErrNotGovernance))
	assert.Equal(t, apperr.Unauthorized, apperr.KindOf(err))

	err = AddressAuthorizer{}.Authorize(ctx, ActionVerifyBuyer, Caller{})
	assert.True(t, errors.Is(err, ErrNoAuthorizerConfig))
}

func TestCapabilityAuthorizer(t *testing.T) {
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("cap-verify-2026"), bcrypt.MinCost)
	require.NoError(t, err)
	auth := CapabilityAuthorizer{TokenHash: hash, Actions: []Action{ActionVerifyFarmer, ActionVerifyBuyer}}

	assert.NoError(t, auth.Authorize(ctx, ActionVerifyFarmer, Caller{Capability: "cap-verify-2026"}))

	err = auth.Authorize(ctx, ActionVerifyFarmer, Caller{Capability: "guess"})
	assert.True(t, errors.Is(err, ErrInvalidCapability))

	err = auth.Authorize(ctx, ActionRecordDispute, Caller{Capability: "cap-verify-2026"})
	assert.True(t, errors.Is(err, ErrInvalidCapability))

	err = auth.Authorize(ctx, ActionVerifyBuyer, Caller{})
	assert.True(t, errors.Is(err, ErrInvalidCapability))
}

func TestHashCapability(t *testing.T) {
	hash, err := HashCapability("ops-token")
	require.NoError(t, err)
	assert.NoError(t, CapabilityAuthorizer{TokenHash: hash}.Authorize(context.Background(), ActionRecordDispute, Caller{Capability: "ops-token"}))
}

func TestAnyOf(t *testing.T) {
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("ops"), bcrypt.MinCost)
	require.NoError(t, err)
	auth := AnyOf{AddressAuthorizer{Governance: governance}, CapabilityAuthorizer{TokenHash: hash}}

	assert.NoError(t, auth.Authorize(ctx, ActionVerifyBuyer, Caller{Account: governance}))
	assert.NoError(t, auth.Authorize(ctx, ActionVerifyBuyer, Caller{Account: outsider, Capability: "ops"}))

	err = auth.Authorize(ctx, ActionVerifyBuyer, Caller{Account: outsider})
	assert.True(t, errors.Is(err, ErrInvalidCapability))

	err = AnyOf{}.Authorize(ctx, ActionVerifyBuyer, Caller{Account: governance})
	assert.True(t, errors.Is(err, ErrNoAuthorizerConfig))
}
