package hw

import (
	"net"
	"os/exec"

	"go.uber.org/zap"
)

// WifiNetwork reports link state by inspecting the named interface. The
// actual association is owned by the OS supplicant; Reconnect only nudges it
// by cycling the interface.
type WifiNetwork struct {
	iface  string
	logger *zap.Logger
}

// NewWifiNetwork watches the given interface, typically wlan0.
func NewWifiNetwork(iface string, logger *zap.Logger) *WifiNetwork {
	return &WifiNetwork{iface: iface, logger: logger}
}

// Connected reports whether the interface is up with a usable IPv4 address.
func (n *WifiNetwork) Connected() bool {
	return n.addr() != ""
}

// LocalAddr returns the interface's IPv4 address, or "" while down.
func (n *WifiNetwork) LocalAddr() string {
	return n.addr()
}

func (n *WifiNetwork) addr() string {
	ifi, err := net.InterfaceByName(n.iface)
	if err != nil || ifi.Flags&net.FlagUp == 0 {
		return ""
	}
	addrs, err := ifi.Addrs()
	if err != nil {
		return ""
	}
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil && !ip4.IsLoopback() {
			return ip4.String()
		}
	}
	return ""
}

// Reconnect cycles the interface so the supplicant reassociates.
func (n *WifiNetwork) Reconnect() error {
	n.logger.Info("cycling wireless interface", zap.String("iface", n.iface))
	if out, err := exec.Command("ip", "link", "set", n.iface, "down").CombinedOutput(); err != nil {
		n.logger.Warn("interface down failed", zap.Error(err), zap.ByteString("output", out))
		return err
	}
	out, err := exec.Command("ip", "link", "set", n.iface, "up").CombinedOutput()
	if err != nil {
		n.logger.Warn("interface up failed", zap.Error(err), zap.ByteString("output", out))
	}
	return err
}
