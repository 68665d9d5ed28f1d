package ledger

// AccountStorageOverhead is the per-account byte overhead charged on top of
// the data length when sizing rent exemption.
const AccountStorageOverhead = 128

// MaxAccountDataSize bounds the space a single account may allocate.
const MaxAccountDataSize = 10 * 1024 * 1024

type Rent struct {
	LamportsPerByteYear uint64 `mapstructure:"lamports_per_byte_year"`
	ExemptionYears      uint64 `mapstructure:"exemption_years"`
}

func DefaultRent() Rent {
	return Rent{LamportsPerByteYear: 3480, ExemptionYears: 2}
}

// MinimumBalance is the balance an account of dataLen bytes needs to be
// exempt from rent collection.
func (r Rent) MinimumBalance(dataLen uint64) uint64 {
	return (AccountStorageOverhead + dataLen) * r.LamportsPerByteYear * r.ExemptionYears
}
