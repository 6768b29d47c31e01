package evm

import "testing"

func TestDecodeSVMAddress(t *testing.T) {
	tests := []struct {
		name    string
		address string
		wantErr bool
	}{
		{name: "system program", address: "11111111111111111111111111111111"},
		{name: "token program", address: "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"},
		{name: "empty", address: "", wantErr: true},
		{name: "too short", address: "1111", wantErr: true},
		{name: "invalid alphabet", address: "0OIl0OIl0OIl0OIl0OIl0OIl0OIl0OIl", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recipient, err := DecodeSVMAddress(tt.address)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.address)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := EncodeSVMAddress(recipient); got != tt.address {
				t.Errorf("expected %s after re-encoding, got %s", tt.address, got)
			}
		})
	}
}

func TestDecodeSVMAddress_SystemProgramIsZero(t *testing.T) {
	recipient, err := DecodeSVMAddress("11111111111111111111111111111111")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recipient != ([32]byte{}) {
		t.Errorf("expected zero bytes32, got %x", recipient)
	}
}
