package device

// BootLoopThreshold is the number of consecutive boots without a successful
// status fetch after which the device enters safe mode.
const BootLoopThreshold = 5

// QuickBookTitle is the fixed title of panel-initiated bookings. The panel
// has no text entry.
const QuickBookTitle = "Quick Booking"

// Access point credentials shown while WiFi provisioning is pending. The
// captive portal itself is handled by the connectivity layer.
const (
	WifiAPName     = "RoomPanel-Setup"
	WifiAPPassword = "setup1234"
)

// commandQueueSize bounds provisioning commands waiting for the next loop
// turn. The web UI is a single human; 8 is generous.
const commandQueueSize = 8
