package server

// VolumeConfig describes one storage volume attached to a server, as
// reported by or handed to the in-instance agent.
type VolumeConfig struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	MountPoint string `json:"mpoint,omitempty"`
	FSType     string `json:"fstype,omitempty"`
	SizeGB     int    `json:"size,omitempty"`
	Device     string `json:"device,omitempty"`
}
