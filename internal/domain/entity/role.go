package entity

// Role ID constants, as issued in access-token claims
const (
	RoleIDAdmin   = 1
	RoleIDDoctor  = 2
	RoleIDPatient = 3
)
