package gamepad

import (
	"fmt"

	"github.com/bendahl/uinput"
	"go.uber.org/zap"

	"github.com/shift-devs/twitch-gamepad/internal/core/domain"
	"github.com/shift-devs/twitch-gamepad/internal/core/ports"
)

const uinputPath = "/dev/uinput"

// Gamepad key codes from linux/input-event-codes.h. The four directions go
// through the hat axis instead, which is what SNES-era emulators expect.
const (
	btnSouth  = 0x130 // a
	btnEast   = 0x131 // b
	btnC      = 0x132
	btnNorth  = 0x133 // x
	btnWest   = 0x134 // y
	btnZ      = 0x135
	btnTL     = 0x136
	btnTR     = 0x137
	btnSelect = 0x13a
	btnStart  = 0x13b
	btnMode   = 0x13c
)

var keyCodes = map[domain.Button]int{
	domain.ButtonA:      btnSouth,
	domain.ButtonB:      btnEast,
	domain.ButtonC:      btnC,
	domain.ButtonX:      btnNorth,
	domain.ButtonY:      btnWest,
	domain.ButtonZ:      btnZ,
	domain.ButtonTL:     btnTL,
	domain.ButtonTR:     btnTR,
	domain.ButtonSelect: btnSelect,
	domain.ButtonStart:  btnStart,
	domain.ButtonMode:   btnMode,
}

// uinputDevice adapts a kernel uinput gamepad to the Device port.
type uinputDevice struct {
	pad    uinput.Gamepad
	logger *zap.SugaredLogger
}

// NewDevice creates the virtual gamepad node. Creation fails when the
// process lacks access to /dev/uinput; that is a startup error, not
// something to retry.
func NewDevice(name string, vendor, product uint16, logger *zap.SugaredLogger) (ports.Device, error) {
	if name == "" {
		name = "Twitch Gamepad"
	}
	pad, err := uinput.CreateGamepad(uinputPath, []byte(name), vendor, product)
	if err != nil {
		return nil, fmt.Errorf("creating uinput gamepad %q: %w", name, err)
	}
	logger.Infow("virtual gamepad created", "name", name, "vendor", vendor, "product", product)
	return &uinputDevice{pad: pad, logger: logger}, nil
}

func (d *uinputDevice) Press(b domain.Button) error {
	switch b {
	case domain.ButtonUp:
		return d.pad.HatPress(uinput.HatUp)
	case domain.ButtonDown:
		return d.pad.HatPress(uinput.HatDown)
	case domain.ButtonLeft:
		return d.pad.HatPress(uinput.HatLeft)
	case domain.ButtonRight:
		return d.pad.HatPress(uinput.HatRight)
	default:
		code, ok := keyCodes[b]
		if !ok {
			return fmt.Errorf("button %s has no key code", b)
		}
		return d.pad.ButtonDown(code)
	}
}

func (d *uinputDevice) Release(b domain.Button) error {
	switch b {
	case domain.ButtonUp:
		return d.pad.HatRelease(uinput.HatUp)
	case domain.ButtonDown:
		return d.pad.HatRelease(uinput.HatDown)
	case domain.ButtonLeft:
		return d.pad.HatRelease(uinput.HatLeft)
	case domain.ButtonRight:
		return d.pad.HatRelease(uinput.HatRight)
	default:
		code, ok := keyCodes[b]
		if !ok {
			return fmt.Errorf("button %s has no key code", b)
		}
		return d.pad.ButtonUp(code)
	}
}

func (d *uinputDevice) Close() error {
	d.logger.Infow("closing virtual gamepad")
	return d.pad.Close()
}
