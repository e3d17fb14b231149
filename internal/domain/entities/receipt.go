package entities

import "time"

// InstallReceipt records what was installed where
type InstallReceipt struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	Platform    string    `json:"platform"`
	SHA256      string    `json:"sha256"`
	Path        string    `json:"path"`
	InstalledAt time.Time `json:"installed_at"`
}
