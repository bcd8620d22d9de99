package ui

// State identifies which screen is currently on the panel. Exactly one is
// active at any time.
type State int

const (
	StateWifiSetup State = iota
	StateTokenSetup
	StateRoomStatus
	StateQuickBookMenu
	StateBookingConfirm
	StateBookingResult
	StateError
	StateLoading
)

func (s State) String() string {
	switch s {
	case StateWifiSetup:
		return "wifi_setup"
	case StateTokenSetup:
		return "token_setup"
	case StateRoomStatus:
		return "room_status"
	case StateQuickBookMenu:
		return "quick_book_menu"
	case StateBookingConfirm:
		return "booking_confirm"
	case StateBookingResult:
		return "booking_result"
	case StateError:
		return "error"
	default:
		return "loading"
	}
}

// Color is an RGB565 value, the native format of the panel's display bus.
type Color uint16

const (
	ColorBackground Color = 0x0000
	ColorPrimary    Color = 0x4A49
	ColorSuccess    Color = 0x07E0
	ColorDanger     Color = 0xF800
	ColorWarning    Color = 0xFD20
	ColorText       Color = 0xFFFF
	ColorTextMuted  Color = 0x7BEF
	ColorCard       Color = 0x2104
	ColorAvailable  Color = 0x07E0
	ColorOccupied   Color = 0xF800
	ColorOff        Color = 0x0000
)

// Driver is the drawing surface plus the two ambient lines the UI controls.
// Pixel fidelity is the driver's problem; the Manager only issues primitives.
type Driver interface {
	Size() (width, height int)
	Fill(c Color)
	FillRect(x, y, w, h int, c Color)
	DrawText(x, y, size int, c Color, text string)
	SetBacklight(on bool)
	SetStatusLight(c Color)
}

// MaxButtons bounds the number of touch targets on a single screen.
const MaxButtons = 8

// Button is a registered touch target on the currently drawn screen.
type Button struct {
	X, Y, W, H int
	Label      string
}

// Contains reports whether the point lies inside the button rectangle.
func (b Button) Contains(x, y int) bool {
	return x >= b.X && x < b.X+b.W && y >= b.Y && y < b.Y+b.H
}
