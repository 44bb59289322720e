package services

import "math"

// KoboPerNaira is the subunit split for NGN. All fee arithmetic happens in
// integer kobo; major units only appear at the storage/display edge.
const KoboPerNaira = 100

func ToKobo(amount float64) int64 {
	return int64(math.Round(amount * KoboPerNaira))
}

func FromKobo(kobo int64) float64 {
	return float64(kobo) / KoboPerNaira
}

// PlatformFeeKobo computes the platform's cut of a sale in kobo, rounded
// half-up.
func PlatformFeeKobo(amountKobo int64, feeRate float64) int64 {
	return int64(math.Round(float64(amountKobo) * feeRate))
}
