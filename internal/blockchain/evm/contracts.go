package evm

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ERC20ABI covers the token methods the deposit flow touches
const ERC20ABI = `[
	{
		"inputs": [{"internalType": "address", "name": "account", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "owner", "type": "address"},
			{"internalType": "address", "name": "spender", "type": "address"}
		],
		"name": "allowance",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "spender", "type": "address"},
			{"internalType": "uint256", "name": "amount", "type": "uint256"}
		],
		"name": "approve",
		"outputs": [{"internalType": "bool", "name": "", "type": "bool"}],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// AccountantABI is the vault accountant's exchange-rate interface
const AccountantABI = `[
	{
		"inputs": [{"internalType": "address", "name": "quote", "type": "address"}],
		"name": "getRateInQuote",
		"outputs": [{"internalType": "uint256", "name": "rateInQuote", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// TellerABI is the vault teller's deposit interface
const TellerABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "depositAsset", "type": "address"},
			{"internalType": "uint256", "name": "depositAmount", "type": "uint256"},
			{"internalType": "uint256", "name": "minimumMint", "type": "uint256"}
		],
		"name": "deposit",
		"outputs": [{"internalType": "uint256", "name": "shares", "type": "uint256"}],
		"stateMutability": "payable",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "isPaused",
		"outputs": [{"internalType": "bool", "name": "", "type": "bool"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// WarpRouteABI is the deposit-and-bridge interface of the warp route
const WarpRouteABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "depositAsset", "type": "address"},
			{"internalType": "uint256", "name": "depositAmount", "type": "uint256"},
			{"internalType": "uint256", "name": "minimumMint", "type": "uint256"},
			{"internalType": "uint32", "name": "destinationDomain", "type": "uint32"},
			{"internalType": "bytes32", "name": "recipient", "type": "bytes32"}
		],
		"name": "depositAndBridge",
		"outputs": [],
		"stateMutability": "payable",
		"type": "function"
	}
]`

// Parsed contract interfaces
var (
	ERC20      = mustParseABI("erc20", ERC20ABI)
	Accountant = mustParseABI("accountant", AccountantABI)
	Teller     = mustParseABI("teller", TellerABI)
	WarpRoute  = mustParseABI("warp route", WarpRouteABI)
)

func mustParseABI(name, raw string) *abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("failed to parse %s ABI: %v", name, err))
	}
	return &parsed
}

// BalanceOfCall reads an ERC-20 balance
func BalanceOfCall(token, holder common.Address) ContractCall {
	return ContractCall{
		Address: token,
		ABI:     ERC20,
		Method:  "balanceOf",
		Args:    []interface{}{holder},
	}
}

// AllowanceCall reads how much spender may move on behalf of owner
func AllowanceCall(token, owner, spender common.Address) ContractCall {
	return ContractCall{
		Address: token,
		ABI:     ERC20,
		Method:  "allowance",
		Args:    []interface{}{owner, spender},
	}
}

// ApproveCall grants spender an allowance of amount
func ApproveCall(token, spender common.Address, amount *big.Int, from common.Address) ContractCall {
	return ContractCall{
		Address: token,
		ABI:     ERC20,
		Method:  "approve",
		Args:    []interface{}{spender, amount},
		From:    from,
	}
}

// RateInQuoteCall reads the receipt-token rate denominated in quote, scaled by 1e18
func RateInQuoteCall(accountant, quote common.Address) ContractCall {
	return ContractCall{
		Address: accountant,
		ABI:     Accountant,
		Method:  "getRateInQuote",
		Args:    []interface{}{quote},
	}
}

// TellerDepositCall deposits into the vault through the teller
func TellerDepositCall(teller, asset common.Address, amount, minimumMint *big.Int, from common.Address) ContractCall {
	return ContractCall{
		Address: teller,
		ABI:     Teller,
		Method:  "deposit",
		Args:    []interface{}{asset, amount, minimumMint},
		From:    from,
	}
}

// IsPausedCall reads whether the teller currently rejects deposits
func IsPausedCall(teller common.Address) ContractCall {
	return ContractCall{
		Address: teller,
		ABI:     Teller,
		Method:  "isPaused",
	}
}

// DepositAndBridgeCall deposits and bridges the receipt token to recipient on destinationDomain
func DepositAndBridgeCall(
	warpRoute, asset common.Address,
	amount, minimumMint *big.Int,
	destinationDomain uint32,
	recipient [32]byte,
	from common.Address,
) ContractCall {
	return ContractCall{
		Address: warpRoute,
		ABI:     WarpRoute,
		Method:  "depositAndBridge",
		Args:    []interface{}{asset, amount, minimumMint, destinationDomain, recipient},
		From:    from,
	}
}

// FirstBigInt extracts a single uint256 output
func FirstBigInt(method string, outputs []interface{}) (*big.Int, error) {
	if len(outputs) == 0 {
		return nil, fmt.Errorf("%s returned no outputs", method)
	}
	value, ok := outputs[0].(*big.Int)
	if !ok || value == nil {
		return nil, fmt.Errorf("%s returned %T, expected uint256", method, outputs[0])
	}
	return value, nil
}

// FirstBool extracts a single bool output
func FirstBool(method string, outputs []interface{}) (bool, error) {
	if len(outputs) == 0 {
		return false, fmt.Errorf("%s returned no outputs", method)
	}
	value, ok := outputs[0].(bool)
	if !ok {
		return false, fmt.Errorf("%s returned %T, expected bool", method, outputs[0])
	}
	return value, nil
}
