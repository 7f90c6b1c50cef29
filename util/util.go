//Package util groups pure helper functions shared by the status API and
// the alerter: magnitude-suffixed formatting and compact-target difficulty.
package util

import (
	"fmt"
	"math"
)

const (
	kilo = 1000
	mega = 1000 * kilo
	giga = 1000 * mega
	tera = 1000 * giga
	peta = 1000 * tera
	exa  = 1000 * peta
)

// SuffixString renders val with a metric suffix (k/M/G/T/P/E), keeping
// sigDigits significant digits. sigDigits zero picks a compact default
// format.
func SuffixString(val uint64, sigDigits int) string {
	var (
		suffix  string
		dval    float64
		decimal = true
	)

	switch {
	case val >= exa:
		dval = float64(val/peta) / kilo
		suffix = "E"
	case val >= peta:
		dval = float64(val/tera) / kilo
		suffix = "P"
	case val >= tera:
		dval = float64(val/giga) / kilo
		suffix = "T"
	case val >= giga:
		dval = float64(val/mega) / kilo
		suffix = "G"
	case val >= mega:
		dval = float64(val/kilo) / kilo
		suffix = "M"
	case val >= kilo:
		dval = float64(val) / kilo
		suffix = "k"
	default:
		dval = float64(val)
		decimal = false
	}

	if sigDigits == 0 {
		if decimal {
			return fmt.Sprintf("%.3g%s", dval, suffix)
		}
		return fmt.Sprintf("%d%s", uint64(dval), suffix)
	}

	nDigits := sigDigits - 1
	if dval > 0 {
		nDigits -= int(math.Floor(math.Log10(dval)))
	}
	if nDigits < 0 {
		nDigits = 0
	}
	return fmt.Sprintf("%.*f%s", nDigits, dval, suffix)
}

// CalculateNetworkDifficulty converts a compact nBits target into the
// network difficulty relative to the maximum target.
func CalculateNetworkDifficulty(nBits uint32) float64 {
	mantissa := nBits & 0x007fffff
	exponent := (nBits >> 24) & 0xff

	target := float64(mantissa) * math.Pow(256, float64(exponent)-3)
	return (math.Pow(2, 208) * 65535) / target
}
