package systemd

import "time"

// ServiceStatus represents the status of a systemd service
type ServiceStatus struct {
	Name        string
	Loaded      bool
	Active      bool
	Running     bool
	Enabled     bool
	MainPID     int
	SubState    string // running, exited, dead, failed, etc.
	LoadState   string // loaded, not-found, bad-setting, error, masked
	ActiveState string // active, inactive, activating, deactivating, failed
	Since       time.Time
	Memory      uint64 // bytes
	Tasks       int
}
