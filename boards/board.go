//Package boards selects and describes the supported hardware variants.
// A Board is queried once at start-up for its static configuration (chip
// count, frequency and voltage tables, power envelope); nothing here is
// re-read while mining.
package boards

import (
	"fmt"
	"strings"
)

// Board is the static hardware description consumed by the monitor, the
// ASIC layer and the status API.
type Board interface {
	DeviceModel() string
	AsicModel() string
	AsicCount() int

	Frequencies() []int
	DefaultFrequencyMhz() int
	Voltages() []int
	DefaultVoltageMillis() int

	// VinRange is the allowed input voltage envelope in volts.
	VinRange() (min, max float64)
}

type baseBoard struct {
	deviceModel string
	asicModel   string
	asicCount   int

	frequencies   []int
	defaultFreq   int
	voltages      []int
	defaultMillis int

	minVin, maxVin float64
}

func (b *baseBoard) DeviceModel() string       { return b.deviceModel }
func (b *baseBoard) AsicModel() string         { return b.asicModel }
func (b *baseBoard) AsicCount() int            { return b.asicCount }
func (b *baseBoard) Frequencies() []int        { return b.frequencies }
func (b *baseBoard) DefaultFrequencyMhz() int  { return b.defaultFreq }
func (b *baseBoard) Voltages() []int           { return b.voltages }
func (b *baseBoard) DefaultVoltageMillis() int { return b.defaultMillis }

func (b *baseBoard) VinRange() (float64, float64) {
	return b.minVin, b.maxVin
}

// New returns the board variant selected in the config.
func New(name string) (Board, error) {
	switch strings.ToLower(name) {
	case "nerdqaxeplus":
		return newNerdQaxePlus(), nil
	case "nerdqaxeplus2":
		return newNerdQaxePlus2(), nil
	case "nerdoctaxegamma":
		return newNerdOctaxeGamma(), nil
	default:
		return nil, fmt.Errorf("boards: unknown board %q", name)
	}
}
