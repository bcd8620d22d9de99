package hw

import (
	"go.uber.org/zap"

	"roompanel-firmware/internal/ui"
)

// LogDisplay renders screens as debug log lines. It is the default driver
// when no panel hardware is attached, and the vendor display driver replaces
// it on real devices.
type LogDisplay struct {
	width  int
	height int
	logger *zap.Logger
}

func NewLogDisplay(width, height int, logger *zap.Logger) *LogDisplay {
	return &LogDisplay{width: width, height: height, logger: logger}
}

func (d *LogDisplay) Size() (int, int) { return d.width, d.height }

func (d *LogDisplay) Fill(c ui.Color) {
	d.logger.Debug("display fill", zap.Uint16("color", uint16(c)))
}

func (d *LogDisplay) FillRect(x, y, w, h int, c ui.Color) {}

func (d *LogDisplay) DrawText(x, y, size int, c ui.Color, text string) {
	d.logger.Debug("display text", zap.Int("y", y), zap.String("text", text))
}

func (d *LogDisplay) SetBacklight(on bool) {
	d.logger.Debug("backlight", zap.Bool("on", on))
}

func (d *LogDisplay) SetStatusLight(c ui.Color) {
	d.logger.Debug("status light", zap.Uint16("color", uint16(c)))
}
