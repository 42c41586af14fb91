package policies

import (
	"context"

	"harvest-backend/internal/pkg/apperr"
	"harvest-backend/internal/pkg/validation"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/bcrypt"
)

// Action names a privileged ledger transition.
type Action string

const (
	ActionVerifyFarmer  Action = "verify_farmer"
	ActionVerifyBuyer   Action = "verify_buyer"
	ActionRecordDispute Action = "record_dispute"
)

var (
	ErrNotGovernance      = apperr.New(apperr.Unauthorized, "Caller is not the governance account")
	ErrInvalidCapability  = apperr.New(apperr.Unauthorized, "Capability token rejected")
	ErrNoAuthorizerConfig = apperr.New(apperr.Unauthorized, "Privileged actions are disabled")
)

// Caller identifies whoever asks for a privileged transition. Capability is
// an opaque bearer token; it is compared against a stored hash and never kept.
type Caller struct {
	Account    common.Address
	Capability string
}

// Authorizer gates privileged transitions. A nil error grants the action.
type Authorizer interface {
	Authorize(ctx context.Context, action Action, caller Caller) error
}

// AddressAuthorizer grants every action to one governance account.
type AddressAuthorizer struct {
	Governance common.Address
}

func (a AddressAuthorizer) Authorize(_ context.Context, _ Action, caller Caller) error {
	if !validation.IsSetAccount(a.Governance) {
		return ErrNoAuthorizerConfig
	}
	if caller.Account != a.Governance {
		return ErrNotGovernance
	}
	return nil
}

// CapabilityAuthorizer grants actions to holders of a token whose bcrypt hash
// is configured. Actions restricts which transitions the token covers; empty
// means all of them.
type CapabilityAuthorizer struct {
	TokenHash []byte
	Actions   []Action
}

func (c CapabilityAuthorizer) Authorize(_ context.Context, action Action, caller Caller) error {
	if len(c.TokenHash) == 0 {
		return ErrNoAuthorizerConfig
	}
	if caller.Capability == "" || !c.covers(action) {
		return ErrInvalidCapability
	}
	if err := bcrypt.CompareHashAndPassword(c.TokenHash, []byte(caller.Capability)); err != nil {
		return ErrInvalidCapability
	}
	return nil
}

func (c CapabilityAuthorizer) covers(action Action) bool {
	if len(c.Actions) == 0 {
		return true
	}
	for _, a := range c.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// AnyOf grants an action when at least one authorizer does. The last refusal
// is returned otherwise.
type AnyOf []Authorizer

func (as AnyOf) Authorize(ctx context.Context, action Action, caller Caller) error {
	err := error(ErrNoAuthorizerConfig)
	for _, a := range as {
		if err = a.Authorize(ctx, action, caller); err == nil {
			return nil
		}
	}
	return err
}

// HashCapability returns the bcrypt hash to configure for a capability token.
func HashCapability(token string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
}
