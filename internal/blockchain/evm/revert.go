package evm

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// RevertError is returned when a dry run is rejected by the chain
type RevertError struct {
	Method string
	Reason string
	Err    error
}

func (e *RevertError) Error() string {
	return fmt.Sprintf("%s reverted: %s", e.Method, e.Reason)
}

func (e *RevertError) Unwrap() error {
	return e.Err
}

func newRevertError(method string, err error) *RevertError {
	return &RevertError{
		Method: method,
		Reason: RevertReason(err),
		Err:    err,
	}
}

// RevertReason extracts the most specific revert reason available from a call error.
// Error(string) payloads are decoded; custom errors are reported by selector.
func RevertReason(err error) string {
	if err == nil {
		return ""
	}

	var revertErr *RevertError
	if errors.As(err, &revertErr) {
		return revertErr.Reason
	}

	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if reason, ok := decodeRevertData(dataErr.ErrorData()); ok {
			return reason
		}
	}

	return err.Error()
}

func decodeRevertData(errorData interface{}) (string, bool) {
	hexData, ok := errorData.(string)
	if !ok {
		return "", false
	}

	data, err := hexutil.Decode(hexData)
	if err != nil || len(data) < 4 {
		return "", false
	}

	if reason, err := abi.UnpackRevert(data); err == nil {
		return reason, true
	}

	return fmt.Sprintf("custom error %s", hexutil.Encode(data[:4])), true
}
