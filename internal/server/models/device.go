// Package models contains the persisted record types shared by repositories
// and services.
package models

import "time"

// Device is the public catalog record describing a rentable host. It is
// owned by a user and references its private credential record and the
// currently active marketplace listing (if any).
type Device struct {
	ID         string
	OwnerUser  string
	RenterUser string

	// Credential is the id of the paired DeviceCredential record. It is set
	// once at creation and never reassigned.
	Credential string

	// ListingID references the device's active Listing. Empty when the device
	// has no current marketplace listing.
	ListingID string

	RentStartDate time.Time
	// Expiration is the time the lease runs out and the client should be reset.
	Expiration       time.Time
	CheckinTimeStamp time.Time

	DeviceName     string
	DeviceDesc     string
	RentHourlyRate string
	Subdomain      string
	HTTPPort       string
	SSHPort        string

	// Hardware stats reported by the device on registration.
	Memory        string
	DiskSpace     string
	Processor     string
	InternetSpeed string

	// ImageKey is the object-storage key of the listing image, when one has
	// been uploaded.
	ImageKey string
}

// DeviceStats carries the caller-reported hardware fields merged into the
// device record on registration. Empty fields are left untouched.
type DeviceStats struct {
	Memory        string
	DiskSpace     string
	Processor     string
	InternetSpeed string
}
