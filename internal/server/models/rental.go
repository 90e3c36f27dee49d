package models

import "time"

// RentedDevice is an entry in the rented-device registry. The registry is an
// auxiliary list of device ids considered actively rented, used by operations
// tooling for renewal sweeps independent of per-device expiration.
type RentedDevice struct {
	DeviceID string
	AddedAt  time.Time
}
