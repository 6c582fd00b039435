package machine

import (
	"fmt"
	"strings"
	"time"

	"github.com/Manu343726/devector/pkg/hw/audio"
	"github.com/Manu343726/devector/pkg/hw/display"
)

// Speed is an emulation speed level
type Speed int

const (
	Speed1 Speed = iota
	Speed20
	Speed50
	Speed100
	Speed200
	SpeedMax

	TotalSpeeds = int(SpeedMax) + 1
)

// Real time duration of an emulated frame at 100%
var RealFrameDuration = time.Duration(display.CyclesPerFrame) * time.Second / audio.CPUClock

var speedPercents = [TotalSpeeds]int{1, 20, 50, 100, 200, 0}

func (s Speed) String() string {
	if s == SpeedMax {
		return "max"
	}
	if s < 0 || int(s) >= TotalSpeeds {
		return fmt.Sprintf("Speed(%d)", int(s))
	}
	return fmt.Sprintf("%d%%", speedPercents[s])
}

// Minimum wall clock time of a frame, 0 for unthrottled
func (s Speed) FrameDuration() time.Duration {
	if s == SpeedMax || s < 0 || int(s) >= TotalSpeeds {
		return 0
	}
	frameMicros := RealFrameDuration.Microseconds()
	return time.Duration(frameMicros*100/int64(speedPercents[s])) * time.Microsecond
}

// Parses "1%", "20", "100%", "max"...
func ParseSpeed(text string) (Speed, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "max" {
		return SpeedMax, nil
	}
	text = strings.TrimSuffix(text, "%")
	for s := Speed1; s < SpeedMax; s++ {
		if fmt.Sprint(speedPercents[s]) == text {
			return s, nil
		}
	}
	return Speed100, fmt.Errorf("unsupported speed '%s', expected one of 1%%, 20%%, 50%%, 100%%, 200%%, max", text)
}
