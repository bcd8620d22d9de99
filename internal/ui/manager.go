package ui

import (
	"fmt"
	"time"

	"roompanel-firmware/internal/model"
	"roompanel-firmware/internal/parse"
)

// Manager owns the screen state and the button registry. Each Show* call
// draws one complete screen in a single uninterrupted pass and replaces the
// registered buttons, so a stale target from a previous screen can never be
// hit. The Manager is confined to the device loop; it has no locking.
type Manager struct {
	drv   Driver
	state State
	loc   *time.Location

	buttons     [MaxButtons]Button
	buttonCount int

	width  int
	height int
}

// NewManager creates a manager drawing on the given surface.
func NewManager(drv Driver) *Manager {
	w, h := drv.Size()
	return &Manager{
		drv:    drv,
		state:  StateLoading,
		loc:    time.UTC,
		width:  w,
		height: h,
	}
}

// SetTimezone selects the display timezone by IANA name. Unknown names fall
// back to UTC rather than failing the screen.
func (m *Manager) SetTimezone(name string) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		m.loc = time.UTC
		return
	}
	m.loc = loc
}

// State returns the currently displayed screen.
func (m *Manager) State() State {
	return m.state
}

// SetBacklight switches the panel backlight. The status light is untouched:
// room state must stay visible on a dark screen.
func (m *Manager) SetBacklight(on bool) {
	m.drv.SetBacklight(on)
}

// ButtonAt hit-tests the registered buttons in registration order and
// returns the index of the first hit, or -1.
func (m *Manager) ButtonAt(x, y int) int {
	for i := 0; i < m.buttonCount; i++ {
		if m.buttons[i].Contains(x, y) {
			return i
		}
	}
	return -1
}

// ButtonCount returns how many touch targets the current screen registered.
func (m *Manager) ButtonCount() int {
	return m.buttonCount
}

// ButtonLabel returns the label of the i-th registered button, or "".
func (m *Manager) ButtonLabel(i int) string {
	if i < 0 || i >= m.buttonCount {
		return ""
	}
	return m.buttons[i].Label
}

func (m *Manager) begin(state State, bg Color) {
	m.state = state
	m.buttonCount = 0
	m.drv.Fill(bg)
}

func (m *Manager) addButton(x, y, w, h int, label string, bg Color) {
	if m.buttonCount >= MaxButtons {
		return
	}
	m.buttons[m.buttonCount] = Button{X: x, Y: y, W: w, H: h, Label: label}
	m.buttonCount++

	m.drv.FillRect(x, y, w, h, bg)
	m.drv.DrawText(x+w/2, y+h/2, 2, ColorText, label)
}

func (m *Manager) header(title string, bg Color) {
	m.drv.FillRect(0, 0, m.width, 32, bg)
	m.drv.DrawText(m.width/2, 16, 2, ColorText, title)
}

func (m *Manager) centered(y, size int, c Color, text string) {
	m.drv.DrawText(m.width/2, y, size, c, text)
}

// ShowStartup draws the boot splash.
func (m *Manager) ShowStartup(version string) {
	m.begin(StateLoading, ColorBackground)
	m.centered(m.height/2-20, 3, ColorText, "Meeting Room Display")
	m.centered(m.height/2+10, 1, ColorTextMuted, "firmware "+version)
}

// ShowConnecting draws the pre-network wait screen.
func (m *Manager) ShowConnecting() {
	m.begin(StateLoading, ColorBackground)
	m.centered(m.height/2, 2, ColorText, "Connecting to WiFi...")
}

// ShowWifiSetup instructs the user to join the provisioning access point.
func (m *Manager) ShowWifiSetup(apName, apPassword string) {
	m.begin(StateWifiSetup, ColorBackground)
	m.header("WiFi Setup", ColorPrimary)
	m.centered(70, 2, ColorText, "Connect to network:")
	m.centered(100, 2, ColorWarning, apName)
	m.centered(130, 2, ColorText, "Password: "+apPassword)
	m.centered(170, 1, ColorTextMuted, "Then follow the portal instructions")
}

// ShowTokenSetup tells the installer where the provisioning page lives.
func (m *Manager) ShowTokenSetup(localAddr string) {
	m.begin(StateTokenSetup, ColorBackground)
	m.header("Device Setup", ColorPrimary)
	m.centered(60, 2, ColorText, "Not configured")
	if localAddr != "" {
		m.centered(95, 2, ColorText, "Open in a browser:")
		m.centered(125, 2, ColorWarning, "http://"+localAddr)
	}
	m.centered(160, 1, ColorTextMuted, "Enter server URL and device token")

	m.addButton(20, m.height-40, 130, 35, "Clear", ColorDanger)
	m.addButton(m.width-150, m.height-40, 130, 35, "Save", ColorSuccess)
}

// ShowRoomStatus draws the main screen and sets the ambient status light.
func (m *Manager) ShowRoomStatus(status model.RoomStatus) {
	m.begin(StateRoomStatus, ColorBackground)

	title := status.Room.Name
	if title == "" {
		title = "Meeting Room"
	}

	if status.IsAvailable {
		m.header(title, ColorAvailable)
		m.drv.SetStatusLight(ColorAvailable)
		m.centered(50, 3, ColorAvailable, "AVAILABLE")
	} else {
		m.header(title, ColorOccupied)
		m.drv.SetStatusLight(ColorOccupied)
		m.centered(50, 3, ColorOccupied, "OCCUPIED")
		if status.CurrentBooking.IsValid {
			m.drawBookingCard(72, status.CurrentBooking, true)
		}
	}

	y := 104
	for _, b := range status.Upcoming() {
		m.drawBookingCard(y, b, false)
		y += 30
	}

	if status.IsAvailable {
		m.addButton(20, m.height-45, m.width-110, 40, "Book Now", ColorPrimary)
		m.addButton(m.width-80, m.height-45, 60, 40, "Refresh", ColorCard)
	} else {
		m.addButton(20, m.height-45, 100, 40, "Refresh", ColorCard)
		m.addButton(140, m.height-45, m.width-160, 40, "End Meeting", ColorDanger)
	}
}

func (m *Manager) drawBookingCard(y int, b model.Booking, current bool) {
	bg := ColorCard
	if current {
		bg = ColorPrimary
	}
	m.drv.FillRect(10, y, m.width-20, 26, bg)
	m.drv.DrawText(16, y+13, 1, ColorText, b.Title)
	m.drv.DrawText(m.width-16, y+13, 1, ColorTextMuted,
		parse.ClockRange(b.StartTime, b.EndTime, m.loc))
}

// ShowQuickBookMenu offers the room's own quick-book durations, laid out as
// a grid with Cancel registered last. The Cancel index is always equal to
// len(durations).
func (m *Manager) ShowQuickBookMenu(durations []int) {
	m.begin(StateQuickBookMenu, ColorBackground)
	m.header("Quick Book", ColorPrimary)
	m.centered(48, 2, ColorText, "Select duration:")

	const cols = 2
	btnW := (m.width - 60) / cols
	btnH := 40
	for i, minutes := range durations {
		if i >= model.MaxQuickBookDurations {
			break
		}
		x := 20 + (i%cols)*(btnW+20)
		y := 70 + (i/cols)*(btnH+10)
		m.addButton(x, y, btnW, btnH, fmt.Sprintf("%d min", minutes), ColorPrimary)
	}

	m.addButton(m.width/2-70, m.height-40, 140, 35, "Cancel", ColorCard)
}

// ShowBookingConfirm asks the user to confirm the selected duration.
func (m *Manager) ShowBookingConfirm(minutes int) {
	m.begin(StateBookingConfirm, ColorBackground)
	m.header("Confirm Booking", ColorPrimary)
	m.centered(70, 2, ColorText, "Book this room for")
	m.centered(105, 3, ColorWarning, fmt.Sprintf("%d minutes", minutes))
	m.centered(140, 1, ColorTextMuted, "starting now")

	m.addButton(30, m.height-60, 120, 45, "Cancel", ColorCard)
	m.addButton(m.width-150, m.height-60, 120, 45, "Confirm", ColorSuccess)
}

// ShowBookingResult reports the outcome of a booking or end-meeting action.
func (m *Manager) ShowBookingResult(success bool, message string) {
	m.begin(StateBookingResult, ColorBackground)
	if success {
		m.header("Done", ColorSuccess)
		m.centered(90, 2, ColorSuccess, message)
	} else {
		m.header("Failed", ColorDanger)
		m.centered(90, 2, ColorDanger, message)
	}
	m.addButton(m.width/2-60, m.height-40, 120, 35, "OK", ColorPrimary)
}

// ShowError draws the failure screen. retryIn, when positive, is the delay
// until the next automatic attempt.
func (m *Manager) ShowError(message string, retryIn time.Duration) {
	m.begin(StateError, ColorBackground)
	m.header("Error", ColorDanger)
	if message == "" {
		message = "Failed to get room status"
	}
	m.centered(80, 2, ColorText, message)
	if retryIn > 0 {
		m.centered(115, 1, ColorTextMuted,
			fmt.Sprintf("Retrying in %ds", int(retryIn.Seconds())))
	}
	m.addButton(m.width/2-60, m.height-40, 120, 35, "Retry", ColorPrimary)
}

// ShowLoading draws a transient wait screen with no touch targets.
func (m *Manager) ShowLoading(message string) {
	m.begin(StateLoading, ColorBackground)
	m.centered(m.height/2, 2, ColorText, message)
}

// ShowUpdateProgress draws OTA transfer progress. No buttons: the transfer
// is not cancellable from the panel.
func (m *Manager) ShowUpdateProgress(version string, written, total int64) {
	m.begin(StateLoading, ColorBackground)
	m.header("Firmware Update", ColorPrimary)
	m.centered(70, 2, ColorText, "Installing "+version)
	if total > 0 {
		pct := int(written * 100 / total)
		barW := (m.width - 40) * pct / 100
		m.drv.FillRect(20, 110, m.width-40, 20, ColorCard)
		m.drv.FillRect(20, 110, barW, 20, ColorSuccess)
		m.centered(150, 1, ColorTextMuted, fmt.Sprintf("%d%%", pct))
	} else {
		m.centered(120, 1, ColorTextMuted, fmt.Sprintf("%d bytes", written))
	}
}

// ShowUpdateResult reports the OTA outcome before restart or fallback.
func (m *Manager) ShowUpdateResult(success bool, message string) {
	m.begin(StateLoading, ColorBackground)
	if success {
		m.header("Firmware Update", ColorSuccess)
		m.centered(90, 2, ColorSuccess, message)
		m.centered(125, 1, ColorTextMuted, "Restarting...")
	} else {
		m.header("Firmware Update", ColorDanger)
		m.centered(90, 2, ColorDanger, message)
	}
}
