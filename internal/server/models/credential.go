package models

// DeviceCredential is the private record paired one-to-one with a public
// Device. It holds the SSH login issued to the current renter and is never
// exposed to non-admin callers.
type DeviceCredential struct {
	ID         string
	OwnerUser  string
	DeviceID   string
	RenterUser string

	Username string
	Password string

	// AssignedPort is the SSH port currently allocated to the device, or 0
	// when none is assigned. A non-zero value must be present in the port
	// pool's used set.
	AssignedPort int

	MoneyPending float64
	MoneyOwed    float64
}
