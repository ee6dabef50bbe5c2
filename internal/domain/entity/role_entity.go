package entity

// Roles are persisted on the user record but not enforced by any gate.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// DefaultTimezone is assigned to new accounts.
const DefaultTimezone = "Europe/Andorra"
