package types

// AccessTuple is a single (address, storage keys) entry of an EIP-2930
// access list, pre-warming the given slots for EIP-2929 gas accounting.
type AccessTuple struct {
	Address     Address
	StorageKeys []Hash
}

// AccessList is a list of address/storage-key pairs pre-warmed for a call,
// per EIP-2930.
type AccessList []AccessTuple
