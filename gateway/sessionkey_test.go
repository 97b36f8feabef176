package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"tengw/shared"
)

func TestDecodeSessionKeySlot(t *testing.T) {
	want := common.HexToAddress("0xabcdefabcdefabcdefabcdefabcdefabcdef0123")
	leading := common.HexToAddress("0x00abcdefabcdefabcdefabcdefabcdefabcdef01")
	threeLeading := common.HexToAddress("0x000000abcdefabcdefabcdefabcdefabcdefabcd")

	tests := []struct {
		name    string
		slot    string
		want    common.Address
		wantErr bool
	}{
		{"full slot", "0xabcdefabcdefabcdefabcdefabcdefabcdef0123" + strings.Repeat("0", 24), want, false},
		{"exact address", "0xabcdefabcdefabcdefabcdefabcdefabcdef0123", want, false},
		{"short value left padded", "0x1234", common.HexToAddress("0x0000000000000000000000000000000000001234"), false},
		{"odd length", "0x123", common.HexToAddress("0x0000000000000000000000000000000000000123"), false},
		{"upper prefix", "0XABCDEFABCDEFABCDEFABCDEFABCDEFABCDEF0123", want, false},
		{"leading zero byte stripped", "0xabcdefabcdefabcdefabcdefabcdefabcdef01" + strings.Repeat("0", 24), leading, false},
		{"three leading zero bytes stripped", "0xabcdefabcdefabcdefabcdefabcdefabcd" + strings.Repeat("0", 24), threeLeading, false},
		{"odd length stripped slot", "0xbcdefabcdefabcdefabcdefabcdefabcdef01" + strings.Repeat("0", 24), common.HexToAddress("0x000bcdefabcdefabcdefabcdefabcdefabcdef01"), false},

		{"empty", "0x", common.Address{}, true},
		{"zero slot", "0x" + strings.Repeat("0", 64), common.Address{}, true},
		{"not hex", "0xnothex", common.Address{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeSessionKeySlot(tt.slot)
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeSessionKeySlot(%q) error = %v, wantErr %v", tt.slot, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("decodeSessionKeySlot(%q) = %s, want %s", tt.slot, got.Hex(), tt.want.Hex())
			}
		})
	}
}

func TestDeleteSucceeded(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{`null`, false},
		{`false`, false},
		{`true`, true},
		{`"0x0"`, false},
		{`"0x` + strings.Repeat("0", 64) + `"`, false},
		{`"0x01"`, true},
		{`"0x"`, true},
		{`{"ok":1}`, true},
		{`garbage`, false},
	}

	for _, tt := range tests {
		if got := deleteSucceeded(json.RawMessage(tt.raw)); got != tt.want {
			t.Errorf("deleteSucceeded(%s) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestSessionKeyOverloads(t *testing.T) {
	sk := common.HexToAddress("0x5555555555555555555555555555555555555555")
	var calls [][]string

	g := newTestGateway(t, func(method string, params []json.RawMessage) (any, *shared.JSONRPCError) {
		if method != "eth_getStorageAt" {
			return nil, &shared.JSONRPCError{Code: -32601, Message: "method not found"}
		}
		var p []string
		for _, raw := range params {
			var s string
			json.Unmarshal(raw, &s)
			p = append(p, s)
		}
		calls = append(calls, p)

		switch p[0] {
		case shared.CreateSessionKeyAddress:
			return strings.ToLower(sk.Hex()) + strings.Repeat("0", 24), nil
		case shared.DeleteSessionKeyAddress:
			return "0x01", nil
		}
		return nil, &shared.JSONRPCError{Code: -32602, Message: "invalid params"}
	})
	c := newJoinedClient(t, g)
	ctx := context.Background()

	got, err := c.CreateSessionKey(ctx)
	if err != nil {
		t.Fatalf("CreateSessionKey failed: %v", err)
	}
	if got != sk {
		t.Errorf("session key = %s, want %s", got.Hex(), sk.Hex())
	}

	deleted, err := c.DeleteSessionKey(ctx, sk)
	if err != nil {
		t.Fatalf("DeleteSessionKey failed: %v", err)
	}
	if !deleted {
		t.Error("DeleteSessionKey = false, want true")
	}

	if len(calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(calls))
	}
	wantCreate := []string{shared.CreateSessionKeyAddress, "0x0", "latest"}
	wantDelete := []string{shared.DeleteSessionKeyAddress, sk.Hex(), "latest"}
	for i := range wantCreate {
		if calls[0][i] != wantCreate[i] {
			t.Errorf("create param %d = %s, want %s", i, calls[0][i], wantCreate[i])
		}
		if calls[1][i] != wantDelete[i] {
			t.Errorf("delete param %d = %s, want %s", i, calls[1][i], wantDelete[i])
		}
	}
}

func TestCreateSessionKey_NullResult(t *testing.T) {
	g := newTestGateway(t, func(string, []json.RawMessage) (any, *shared.JSONRPCError) {
		return nil, nil
	})
	c := newJoinedClient(t, g)

	if _, err := c.CreateSessionKey(context.Background()); !errors.Is(err, ErrNoSessionKey) {
		t.Errorf("error = %v, want ErrNoSessionKey", err)
	}
}

func TestDeleteSessionKey_Rejected(t *testing.T) {
	g := newTestGateway(t, func(string, []json.RawMessage) (any, *shared.JSONRPCError) {
		return false, nil
	})
	c := newJoinedClient(t, g)

	deleted, err := c.DeleteSessionKey(context.Background(), common.HexToAddress("0x01"))
	if err != nil {
		t.Fatalf("DeleteSessionKey failed: %v", err)
	}
	if deleted {
		t.Error("DeleteSessionKey = true, want false")
	}
}
