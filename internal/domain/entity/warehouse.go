package entity

import "time"

// Site representa una sede física de la organización. El stock se lleva por sede.
type Site struct {
	ID        string
	TenantID  string
	Name      string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
