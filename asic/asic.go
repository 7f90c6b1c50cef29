//Package asic describes the supported ASIC architectures and runs the
// serial receive/dispatch path that feeds the hashrate monitor.
package asic

import "fmt"

// Asic is the per-architecture description consumed once at start-up. The
// counts-per-hash factor is the number of hashes represented by a single
// increment of the chip's 32-bit hash counter register; it is a property of
// the ASIC model, calibrated per architecture.
type Asic interface {
	Model() string
	CountsPerHash() float64
}

type model struct {
	name          string
	countsPerHash float64
}

func (m *model) Model() string          { return m.name }
func (m *model) CountsPerHash() float64 { return m.countsPerHash }

// NewBM1368 returns the BM1368 descriptor.
func NewBM1368() Asic {
	return &model{name: "BM1368", countsPerHash: 1024}
}

// NewBM1370 returns the BM1370 descriptor.
func NewBM1370() Asic {
	return &model{name: "BM1370", countsPerHash: 2048}
}

// ForModel maps a board's ASIC model string to its descriptor.
func ForModel(name string) (Asic, error) {
	switch name {
	case "BM1368":
		return NewBM1368(), nil
	case "BM1370":
		return NewBM1370(), nil
	default:
		return nil, fmt.Errorf("asic: unsupported model %q", name)
	}
}
