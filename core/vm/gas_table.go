package vm

import "math"

// EIP-2929 (cold/warm access), EIP-3529 (reduced refunds), EIP-1153
// (transient storage) and EIP-150 (63/64 call gas) constants. These are
// metadata a Host uses to compute the gas it reports through PreValidate;
// the Runtime itself never charges gas (see Config's gas fields for the
// externalized equivalents).
const (
	ColdAccountAccessCost uint64 = 2600
	ColdSloadCost         uint64 = 2100
	WarmStorageReadCost   uint64 = 100
	CallStipend           uint64 = 2300 // free gas credited to a value-bearing CALL's callee

	MemoryGasCostPerWord uint64 = 3

	// EIP-3529: max gas refund is gasUsed/5.
	MaxRefundQuotient uint64 = 5
	// EIP-3529: SSTORE_CLEARS_SCHEDULE refund.
	SstoreClearsScheduleRefund uint64 = 4800

	SelfdestructGas         uint64 = 5000
	CreateBySelfdestructGas uint64 = 25000
	CreateDataGas           uint64 = 200 // per byte of deployed code

	MaxCodeSize     int = 24576 // EIP-170
	MaxInitCodeSize int = 49152 // EIP-3860

	InitCodeWordGas uint64 = 2 // EIP-3860

	CallGasFraction      uint64 = 64 // EIP-150 63/64 rule
	CallValueTransferGas uint64 = 9000
	CallNewAccountGas    uint64 = 25000
)

// MemoryGasCost calculates the gas cost for memory expanded to memSize bytes.
// Gas for memory = 3 * numWords + numWords^2 / 512. Returns math.MaxUint64
// on overflow to signal out-of-gas.
func MemoryGasCost(memSize uint64) uint64 {
	if memSize == 0 {
		return 0
	}
	words := toWordSize(memSize)
	if words > 181_000 {
		return math.MaxUint64
	}
	linear := words * MemoryGasCostPerWord
	quadratic := words * words / 512
	return linear + quadratic
}

// MemoryExpansionGas returns the gas cost for expanding memory from oldSize
// to newSize.
func MemoryExpansionGas(oldSize, newSize uint64) uint64 {
	if newSize <= oldSize {
		return 0
	}
	return MemoryGasCost(newSize) - MemoryGasCost(oldSize)
}

// toWordSize rounds up to the next 32-byte word.
func toWordSize(size uint64) uint64 {
	if size == 0 {
		return 0
	}
	if size > math.MaxUint64-31 {
		return math.MaxUint64/32 + 1
	}
	return (size + 31) / 32
}

// CallGas computes the gas available for a CALL-family opcode per the
// 63/64 rule (EIP-150). The caller keeps 1/64 of its remaining gas.
func CallGas(availableGas, requestedGas uint64) uint64 {
	maxGas := availableGas - availableGas/CallGasFraction
	if requestedGas > maxGas {
		return maxGas
	}
	return requestedGas
}

// SstoreGas computes the gas cost and refund for an SSTORE operation per
// EIP-2200 / EIP-3529.
func SstoreGas(original, current, newVal [32]byte, cold bool) (gas uint64, refund int64) {
	if cold {
		gas += ColdSloadCost
	}

	if current == newVal {
		gas += WarmStorageReadCost
		return gas, 0
	}

	if original == current {
		if isZero(original) {
			gas += GasSstoreSet
			return gas, 0
		}
		gas += GasSstoreReset
		if isZero(newVal) {
			refund = int64(SstoreClearsScheduleRefund)
		}
		return gas, refund
	}

	gas += WarmStorageReadCost

	if !isZero(original) {
		if isZero(current) && !isZero(newVal) {
			refund -= int64(SstoreClearsScheduleRefund)
		} else if !isZero(current) && isZero(newVal) {
			refund += int64(SstoreClearsScheduleRefund)
		}
	}
	if original == newVal {
		if isZero(original) {
			refund += int64(GasSstoreSet) - int64(WarmStorageReadCost)
		} else {
			refund += int64(GasSstoreReset) - int64(WarmStorageReadCost)
		}
	}
	return gas, refund
}

// LogGas computes the gas cost for a LOG operation.
func LogGas(numTopics uint64, dataSize uint64) uint64 {
	gas := safeAdd(GasLog, safeMul(numTopics, GasLogTopic))
	return safeAdd(gas, safeMul(dataSize, GasLogData))
}

// Sha3Gas computes the gas cost for a KECCAK256 operation.
func Sha3Gas(dataSize uint64) uint64 {
	words := toWordSize(dataSize)
	return safeAdd(GasKeccak256, safeMul(words, GasKeccak256Word))
}

// CopyGas computes the gas cost for a copy operation.
func CopyGas(size uint64) uint64 {
	return safeMul(GasCopy, toWordSize(size))
}

func isZero(val [32]byte) bool {
	for _, b := range val {
		if b != 0 {
			return false
		}
	}
	return true
}

func safeAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

func safeMul(a, b uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a > math.MaxUint64/b {
		return math.MaxUint64
	}
	return a * b
}
