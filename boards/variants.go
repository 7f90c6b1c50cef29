package boards

import (
	"log"

	"github.com/spf13/viper"
	"github.com/stianeikeland/go-rpio"
)

func newNerdQaxePlus() Board {
	return &baseBoard{
		deviceModel:   "NerdQAxe+",
		asicModel:     "BM1368",
		asicCount:     4,
		frequencies:   []int{425, 450, 475, 490, 500, 525, 550, 575},
		defaultFreq:   490,
		voltages:      []int{1100, 1150, 1200, 1250, 1300},
		defaultMillis: 1200,
		minVin:        4.5,
		maxVin:        5.5,
	}
}

func newNerdQaxePlus2() Board {
	return &baseBoard{
		deviceModel:   "NerdQAxe++",
		asicModel:     "BM1370",
		asicCount:     4,
		frequencies:   []int{500, 525, 550, 575, 600},
		defaultFreq:   600,
		voltages:      []int{1100, 1120, 1140, 1150, 1160, 1180, 1200},
		defaultMillis: 1150,
		minVin:        11.0,
		maxVin:        13.0,
	}
}

// newNerdOctaxeGamma builds the eight-chip board. Revision 3.0+ boards
// strap a detect pin high to announce the 6-phase TPS53667 regulator; the
// pin is pulled down internally, so older boards without the strapping
// resistor come up as the 4-phase TPS53647 and keep the inherited limits.
func newNerdOctaxeGamma() Board {
	b := &baseBoard{
		deviceModel:   "NerdOCTAXE-γ",
		asicModel:     "BM1370",
		asicCount:     8,
		frequencies:   []int{500, 525, 550, 575, 600},
		defaultFreq:   600,
		voltages:      []int{1100, 1120, 1140, 1150, 1160, 1180, 1200},
		defaultMillis: 1150,
		minVin:        11.0,
		maxVin:        13.0,
	}

	if detectSixPhaseRegulator() {
		b.frequencies = []int{525, 550, 575, 600, 625, 650, 675, 700, 725, 750, 775, 800}
		b.defaultFreq = 700
		b.voltages = []int{1120, 1130, 1140, 1150, 1160, 1170, 1180, 1190, 1200, 1210, 1220, 1230, 1240, 1250, 1260}
		b.defaultMillis = 1210
		log.Print("TPS53667 voltage regulator detected (6 phases)")
	} else {
		log.Print("TPS53647 voltage regulator detected (4 phases)")
	}
	return b
}

func detectSixPhaseRegulator() bool {
	if err := rpio.Open(); err != nil {
		log.Printf("Cannot open GPIO, assuming 4-phase regulator: %v", err)
		return false
	}
	defer rpio.Close()

	pin := rpio.Pin(viper.GetInt("vrdetectio"))
	pin.Input()
	pin.PullDown()

	return pin.Read() == rpio.High
}
