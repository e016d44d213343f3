package serial

import (
	"regexp"
	"runtime"
	"sort"
	"sync"

	"go.bug.st/serial/enumerator"
)

// PortType represents the type of serial port
type PortType int

const (
	PortTypeUnknown PortType = iota
	PortTypeUSB
	PortTypeNative
	PortTypeBluetooth
	PortTypeVirtual
)

// String returns the string representation of PortType
func (p PortType) String() string {
	switch p {
	case PortTypeUSB:
		return "USB"
	case PortTypeNative:
		return "Native"
	case PortTypeBluetooth:
		return "Bluetooth"
	case PortTypeVirtual:
		return "Virtual"
	default:
		return "Unknown"
	}
}

// PortInfo contains information about a serial port
type PortInfo struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Product      string   `json:"product"`
	SerialNumber string   `json:"serial_number"`
	VID          string   `json:"vid"`
	PID          string   `json:"pid"`
	PortType     PortType `json:"port_type"`
}

// Scanner handles serial port discovery and enumeration. It feeds the
// list command and the candidate-port set offered by the terminal view.
type Scanner struct {
	mu              sync.RWMutex
	excludePatterns []*regexp.Regexp
	cachedPorts     []PortInfo
}

// NewScanner creates a new port scanner
func NewScanner(excludePatterns []string) (*Scanner, error) {
	s := &Scanner{}

	for _, pattern := range excludePatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, err
		}
		s.excludePatterns = append(s.excludePatterns, re)
	}

	return s, nil
}

// Scan discovers all available serial ports
func (s *Scanner) Scan() ([]PortInfo, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}

	var result []PortInfo

	for _, port := range ports {
		if s.isExcluded(port.Name) {
			continue
		}

		info := PortInfo{
			Name:         port.Name,
			Product:      port.Product,
			SerialNumber: port.SerialNumber,
			VID:          port.VID,
			PID:          port.PID,
			PortType:     detectPortType(port),
		}
		info.Description = buildDescription(port)

		result = append(result, info)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	s.mu.Lock()
	s.cachedPorts = result
	s.mu.Unlock()

	return result, nil
}

// Names returns just the port names from a scan.
func (s *Scanner) Names() ([]string, error) {
	ports, err := s.Scan()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(ports))
	for _, p := range ports {
		names = append(names, p.Name)
	}
	return names, nil
}

// GetCached returns the last cached port list
func (s *Scanner) GetCached() []PortInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cachedPorts == nil {
		return nil
	}
	result := make([]PortInfo, len(s.cachedPorts))
	copy(result, s.cachedPorts)
	return result
}

// isExcluded checks if a port should be excluded based on patterns
func (s *Scanner) isExcluded(name string) bool {
	for _, pattern := range s.excludePatterns {
		if pattern.MatchString(name) {
			return true
		}
	}
	return false
}

// detectPortType determines the type of port
func detectPortType(port *enumerator.PortDetails) PortType {
	if port.IsUSB {
		return PortTypeUSB
	}

	switch runtime.GOOS {
	case "windows":
		if matched, _ := regexp.MatchString(`(?i)bluetooth|bth`, port.Name); matched {
			return PortTypeBluetooth
		}
	case "linux":
		if matched, _ := regexp.MatchString(`/dev/rfcomm`, port.Name); matched {
			return PortTypeBluetooth
		}
		if matched, _ := regexp.MatchString(`/dev/pts/|/dev/pty`, port.Name); matched {
			return PortTypeVirtual
		}
	case "darwin":
		if matched, _ := regexp.MatchString(`/dev/.*Bluetooth`, port.Name); matched {
			return PortTypeBluetooth
		}
	}

	return PortTypeNative
}

// buildDescription creates a human-readable description for the port
func buildDescription(port *enumerator.PortDetails) string {
	if port.Product != "" {
		return port.Product
	}
	if port.IsUSB {
		return "USB Serial Device"
	}
	return "Serial Port"
}
