package mint

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"vaultmint/internal/blockchain/evm"
)

// BalanceService reads ERC-20 balances and allowances
type BalanceService struct {
	client ReadClient
}

// NewBalanceService creates a new balance service
func NewBalanceService(client ReadClient) *BalanceService {
	return &BalanceService{client: client}
}

// BalanceOf returns holder's balance of token in minimal units.
// A failure means the balance is unknown, not zero.
func (s *BalanceService) BalanceOf(ctx context.Context, token, holder common.Address) (*big.Int, error) {
	if s.client == nil {
		return nil, ErrClientUnavailable
	}

	outputs, err := s.client.ReadContract(ctx, evm.BalanceOfCall(token, holder))
	if err != nil {
		return nil, fmt.Errorf("failed to read balance of %s: %w", holder.Hex(), err)
	}

	return evm.FirstBigInt("balanceOf", outputs)
}

// Allowance returns how much spender may transfer from owner
func (s *BalanceService) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	if s.client == nil {
		return nil, ErrClientUnavailable
	}

	outputs, err := s.client.ReadContract(ctx, evm.AllowanceCall(token, owner, spender))
	if err != nil {
		return nil, fmt.Errorf("failed to read allowance for %s: %w", spender.Hex(), err)
	}

	return evm.FirstBigInt("allowance", outputs)
}
