package vm

import (
	"github.com/holiman/uint256"

	"github.com/rome-protocol/goevm/core/types"
	"github.com/rome-protocol/goevm/crypto"
)

func keccak256Hash(data []byte) types.Hash {
	return crypto.Keccak256Hash(data)
}

// createAddress derives a CREATE address: the low 20 bytes of
// keccak256(rlp([sender, nonce])).
func createAddress(sender types.Address, nonce uint64) types.Address {
	encoded := rlpEncodeAddressNonce(sender, nonce)
	hash := crypto.Keccak256(encoded)
	return types.BytesToAddress(hash[12:])
}

// create2Address derives a CREATE2 address per EIP-1014:
// keccak256(0xff ++ sender ++ salt ++ keccak256(init_code))[12:].
func create2Address(sender types.Address, salt *uint256.Int, initCodeHash types.Hash) types.Address {
	saltBytes := salt.Bytes32()
	buf := make([]byte, 0, 1+20+32+32)
	buf = append(buf, 0xff)
	buf = append(buf, sender[:]...)
	buf = append(buf, saltBytes[:]...)
	buf = append(buf, initCodeHash[:]...)
	hash := crypto.Keccak256(buf)
	return types.BytesToAddress(hash[12:])
}

// rlpEncodeAddressNonce encodes [sender, nonce] as an RLP list: a minimal
// encoder for exactly this two-element shape, since CREATE address
// derivation is the only place this module needs RLP at all.
func rlpEncodeAddressNonce(sender types.Address, nonce uint64) []byte {
	addrItem := append([]byte{0x80 + 20}, sender[:]...)
	nonceItem := rlpEncodeUint64(nonce)

	body := append(addrItem, nonceItem...)
	return append(rlpListPrefix(len(body)), body...)
}

func rlpEncodeUint64(n uint64) []byte {
	if n == 0 {
		return []byte{0x80}
	}
	if n < 0x80 {
		return []byte{byte(n)}
	}
	var b []byte
	for v := n; v > 0; v >>= 8 {
		b = append([]byte{byte(v)}, b...)
	}
	return append([]byte{0x80 + byte(len(b))}, b...)
}

func rlpListPrefix(bodyLen int) []byte {
	if bodyLen < 56 {
		return []byte{0xc0 + byte(bodyLen)}
	}
	var lenBytes []byte
	for v := bodyLen; v > 0; v >>= 8 {
		lenBytes = append([]byte{byte(v)}, lenBytes...)
	}
	return append([]byte{0xf7 + byte(len(lenBytes))}, lenBytes...)
}
