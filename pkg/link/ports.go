package link

import (
	"fmt"
	"sort"
	"strings"

	"go.bug.st/serial/enumerator"
)

// PortInfo describes a serial device that could carry the serial link.
type PortInfo struct {
	Name    string
	USB     bool
	VIDPID  string
	Serial  string
	Product string
}

// ListPorts returns the serial ports present on this machine, sorted by
// name. Bluetooth ports are skipped.
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}

	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		// Skip Bluetooth ports on macOS
		if strings.Contains(d.Name, "Bluetooth") {
			continue
		}
		p := PortInfo{Name: d.Name, USB: d.IsUSB}
		if d.IsUSB {
			p.VIDPID = d.VID + ":" + d.PID
			p.Serial = d.SerialNumber
			p.Product = d.Product
		}
		ports = append(ports, p)
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i].Name < ports[j].Name })
	return ports, nil
}
