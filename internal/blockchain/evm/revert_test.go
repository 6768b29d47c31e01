package evm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type dataError struct {
	msg  string
	data interface{}
}

func (e *dataError) Error() string          { return e.msg }
func (e *dataError) ErrorData() interface{} { return e.data }

func errorStringPayload(t *testing.T, reason string) string {
	t.Helper()
	stringType, err := abi.NewType("string", "", nil)
	if err != nil {
		t.Fatalf("failed to build string type: %v", err)
	}
	encoded, err := abi.Arguments{{Type: stringType}}.Pack(reason)
	if err != nil {
		t.Fatalf("failed to pack reason: %v", err)
	}
	selector := []byte{0x08, 0xc3, 0x79, 0xa0}
	return hexutil.Encode(append(selector, encoded...))
}

func TestRevertReason(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "error string payload",
			err:      &dataError{msg: "execution reverted", data: errorStringPayload(t, "TellerWithMultiAssetSupport__MinimumMintNotMet")},
			expected: "TellerWithMultiAssetSupport__MinimumMintNotMet",
		},
		{
			name:     "custom error selector",
			err:      &dataError{msg: "execution reverted", data: "0xdeadbeef00"},
			expected: "custom error 0xdeadbeef",
		},
		{
			name:     "wrapped data error",
			err:      fmt.Errorf("call failed: %w", &dataError{msg: "execution reverted", data: errorStringPayload(t, "paused")}),
			expected: "paused",
		},
		{
			name:     "plain error",
			err:      errors.New("connection refused"),
			expected: "connection refused",
		},
		{
			name:     "revert error keeps reason",
			err:      fmt.Errorf("simulate: %w", &RevertError{Method: "deposit", Reason: "insufficient balance"}),
			expected: "insufficient balance",
		},
		{
			name:     "nil",
			err:      nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RevertReason(tt.err); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
