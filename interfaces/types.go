// Package interfaces defines the core types and component contracts for the
// Privibase notification relay. It provides the contract between the
// subscription registry, the two ingestion paths, and the dispatch layer
// without implementation details.
package interfaces

import (
	"errors"
	"fmt"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// ErrInvalidAddress is returned when an input fails chain-address syntax
// validation. It is always recoverable and reported back to the caller.
var ErrInvalidAddress = errors.New("invalid chain address")

// ErrNotSubscribed is returned on a registry lookup miss. It is a normal
// negative result, not a failure.
var ErrNotSubscribed = errors.New("no subscription for address")

// ErrSnapshotNotFound is returned by snapshot backends when no persisted
// registry state exists yet.
var ErrSnapshotNotFound = errors.New("registry snapshot not found")

// Address is a normalized chain address: 0x-prefixed, lower-cased hex.
// It is the registry key type for identities and the value type for
// protected-data targets.
type Address string

// NewAddress validates and normalizes a chain address string.
// Returns ErrInvalidAddress if the input is not a syntactically valid
// 20-byte hex address.
func NewAddress(raw string) (Address, error) {
	trimmed := strings.TrimSpace(raw)
	if !ethcommon.IsHexAddress(trimmed) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, raw)
	}
	return Address(strings.ToLower(trimmed)), nil
}

// String returns the normalized address string.
func (a Address) String() string {
	return string(a)
}

// Eth converts the address to a go-ethereum common.Address.
func (a Address) Eth() ethcommon.Address {
	return ethcommon.HexToAddress(string(a))
}

// AddressFromEth converts a go-ethereum address into the normalized form.
func AddressFromEth(addr ethcommon.Address) Address {
	return Address(strings.ToLower(addr.Hex()))
}

// AlertEvent is a decoded on-chain confidential alert: the emitting identity
// and the free-form message type carried by the event.
type AlertEvent struct {
	User        Address
	MessageType string
}
