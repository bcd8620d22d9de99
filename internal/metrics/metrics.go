package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Runtime counters for the device loop, served at /metrics on the
// provisioning endpoint. Labels are avoided: one device, one series each.
var (
	PollCycles = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "roompanel",
		Name:      "poll_cycles_total",
		Help:      "Status polls attempted.",
	})
	PollFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "roompanel",
		Name:      "poll_failures_total",
		Help:      "Status polls that returned an invalid snapshot.",
	})
	Redraws = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "roompanel",
		Name:      "status_redraws_total",
		Help:      "Room status screens actually redrawn after diffing.",
	})
	BookingsAttempted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "roompanel",
		Name:      "bookings_attempted_total",
		Help:      "Quick-book requests sent.",
	})
	BookingsSucceeded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "roompanel",
		Name:      "bookings_succeeded_total",
		Help:      "Quick-book requests confirmed by the server.",
	})
	Reconnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "roompanel",
		Name:      "wifi_reconnects_total",
		Help:      "Reconnection attempts after a detected WiFi drop.",
	})
	Restarts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "roompanel",
		Name:      "restarts_requested_total",
		Help:      "Full restarts requested by the recovery policy.",
	})
	UpdateChecks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "roompanel",
		Name:      "firmware_checks_total",
		Help:      "Firmware update checks performed.",
	})
	UpdatesApplied = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "roompanel",
		Name:      "firmware_updates_applied_total",
		Help:      "Firmware images downloaded and finalized.",
	})
	UpdatesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "roompanel",
		Name:      "firmware_updates_failed_total",
		Help:      "Firmware updates that aborted.",
	})

	RoomAvailable = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "roompanel",
		Name:      "room_available",
		Help:      "1 when the room is currently available.",
	})
	Connected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "roompanel",
		Name:      "wifi_connected",
		Help:      "1 while the WiFi link is up.",
	})
	BootCount = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "roompanel",
		Name:      "boot_count",
		Help:      "Consecutive boots without a successful status fetch.",
	})
)
