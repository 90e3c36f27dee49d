package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/p2pvps/marketd/internal/common"
	"github.com/p2pvps/marketd/internal/dbx"
	"github.com/p2pvps/marketd/internal/logging"
	"github.com/p2pvps/marketd/internal/server/config"
	"github.com/p2pvps/marketd/internal/server/marketplace"
	"github.com/p2pvps/marketd/internal/server/models"
	credentialsrepo "github.com/p2pvps/marketd/internal/server/repositories/credentials"
	devicesrepo "github.com/p2pvps/marketd/internal/server/repositories/devices"
	listingsrepo "github.com/p2pvps/marketd/internal/server/repositories/listings"
	portsrepo "github.com/p2pvps/marketd/internal/server/repositories/ports"
	rentalsrepo "github.com/p2pvps/marketd/internal/server/repositories/rentals"
	usersrepo "github.com/p2pvps/marketd/internal/server/repositories/users"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

// expectTxs queues n Begin/Commit pairs for services that run their repo
// calls through transactions; the in-memory fakes issue no queries.
func expectTxs(mock sqlmock.Sqlmock, n int) {
	for i := 0; i < n; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.PortBase = 6000
	cfg.PortCeiling = 6003
	cfg.LeaseDuration = 24 * time.Hour
	return cfg
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// --- in-memory repositories ---

type memDevicesRepo struct {
	devices map[string]models.Device
}

func newMemDevicesRepo() *memDevicesRepo {
	return &memDevicesRepo{devices: make(map[string]models.Device)}
}

func (r *memDevicesRepo) Create(ctx context.Context, d *models.Device) error {
	r.devices[d.ID] = *d
	return nil
}

func (r *memDevicesRepo) GetByID(ctx context.Context, id string) (*models.Device, error) {
	d, ok := r.devices[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := d
	return &cp, nil
}

func (r *memDevicesRepo) List(ctx context.Context) ([]*models.Device, error) {
	out := []*models.Device{}
	for _, d := range r.devices {
		cp := d
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memDevicesRepo) ListByOwner(ctx context.Context, ownerUser string) ([]*models.Device, error) {
	out := []*models.Device{}
	for _, d := range r.devices {
		if d.OwnerUser == ownerUser {
			cp := d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memDevicesRepo) Update(ctx context.Context, d *models.Device) error {
	if _, ok := r.devices[d.ID]; !ok {
		return common.ErrNotFound
	}
	r.devices[d.ID] = *d
	return nil
}

func (r *memDevicesRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.devices[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.devices, id)
	return nil
}

type memCredentialsRepo struct {
	creds map[string]models.DeviceCredential
}

func newMemCredentialsRepo() *memCredentialsRepo {
	return &memCredentialsRepo{creds: make(map[string]models.DeviceCredential)}
}

func (r *memCredentialsRepo) Create(ctx context.Context, c *models.DeviceCredential) error {
	r.creds[c.ID] = *c
	return nil
}

func (r *memCredentialsRepo) GetByID(ctx context.Context, id string) (*models.DeviceCredential, error) {
	c, ok := r.creds[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := c
	return &cp, nil
}

func (r *memCredentialsRepo) GetByDeviceID(ctx context.Context, deviceID string) (*models.DeviceCredential, error) {
	for _, c := range r.creds {
		if c.DeviceID == deviceID {
			cp := c
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memCredentialsRepo) Update(ctx context.Context, c *models.DeviceCredential) error {
	if _, ok := r.creds[c.ID]; !ok {
		return common.ErrNotFound
	}
	r.creds[c.ID] = *c
	return nil
}

func (r *memCredentialsRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.creds[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.creds, id)
	return nil
}

type memListingsRepo struct {
	listings map[string]models.Listing
}

func newMemListingsRepo() *memListingsRepo {
	return &memListingsRepo{listings: make(map[string]models.Listing)}
}

func (r *memListingsRepo) Create(ctx context.Context, l *models.Listing) error {
	r.listings[l.ID] = *l
	return nil
}

func (r *memListingsRepo) GetByID(ctx context.Context, id string) (*models.Listing, error) {
	l, ok := r.listings[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := l
	return &cp, nil
}

func (r *memListingsRepo) GetByDeviceID(ctx context.Context, deviceID string) (*models.Listing, error) {
	for _, l := range r.listings {
		if l.DeviceID == deviceID {
			cp := l
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memListingsRepo) List(ctx context.Context) ([]*models.Listing, error) {
	out := []*models.Listing{}
	for _, l := range r.listings {
		cp := l
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memListingsRepo) Update(ctx context.Context, l *models.Listing) error {
	if _, ok := r.listings[l.ID]; !ok {
		return common.ErrNotFound
	}
	r.listings[l.ID] = *l
	return nil
}

func (r *memListingsRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.listings[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.listings, id)
	return nil
}

type memRentalsRepo struct {
	ids []string
}

func (r *memRentalsRepo) Add(ctx context.Context, deviceID string, addedAt time.Time) error {
	for _, id := range r.ids {
		if id == deviceID {
			return common.ErrConflict
		}
	}
	r.ids = append(r.ids, deviceID)
	return nil
}

func (r *memRentalsRepo) List(ctx context.Context) ([]string, error) {
	out := []string{}
	out = append(out, r.ids...)
	return out, nil
}

func (r *memRentalsRepo) Exists(ctx context.Context, deviceID string) (bool, error) {
	for _, id := range r.ids {
		if id == deviceID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRentalsRepo) Remove(ctx context.Context, deviceID string) error {
	for i, id := range r.ids {
		if id == deviceID {
			r.ids = append(r.ids[:i], r.ids[i+1:]...)
			return nil
		}
	}
	return common.ErrNotFound
}

type memPortsRepo struct {
	ports []int
}

func (r *memPortsRepo) LastAllocated(ctx context.Context) (int, bool, error) {
	if len(r.ports) == 0 {
		return 0, false, nil
	}
	return r.ports[len(r.ports)-1], true, nil
}

func (r *memPortsRepo) Append(ctx context.Context, port int) error {
	r.ports = append(r.ports, port)
	return nil
}

func (r *memPortsRepo) Remove(ctx context.Context, port int) error {
	for i, p := range r.ports {
		if p == port {
			r.ports = append(r.ports[:i], r.ports[i+1:]...)
			return nil
		}
	}
	return common.ErrNotFound
}

func (r *memPortsRepo) Used(ctx context.Context) ([]int, error) {
	out := []int{}
	out = append(out, r.ports...)
	return out, nil
}

type memUsersRepo struct {
	users map[string]models.User
}

func newMemUsersRepo() *memUsersRepo {
	return &memUsersRepo{users: make(map[string]models.User)}
}

func (r *memUsersRepo) Create(ctx context.Context, u *models.User) error {
	for _, stored := range r.users {
		if stored.UserName == u.UserName {
			return common.ErrConflict
		}
	}
	r.users[u.ID] = *u
	return nil
}

func (r *memUsersRepo) GetByLogin(ctx context.Context, userName string) (*models.User, error) {
	for _, u := range r.users {
		if u.UserName == userName {
			cp := u
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := u
	return &cp, nil
}

func (r *memUsersRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.users[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

// memRepoManager vends the in-memory repositories regardless of the DBTX it
// is bound to, so transactional services can run against sqlmock Begin/Commit
// pairs without SQL expectations.
type memRepoManager struct {
	devices *memDevicesRepo
	creds   *memCredentialsRepo
	lists   *memListingsRepo
	rentals *memRentalsRepo
	ports   *memPortsRepo
	users   *memUsersRepo
}

func newMemRepoManager() *memRepoManager {
	return &memRepoManager{
		devices: newMemDevicesRepo(),
		creds:   newMemCredentialsRepo(),
		lists:   newMemListingsRepo(),
		rentals: &memRentalsRepo{},
		ports:   &memPortsRepo{},
		users:   newMemUsersRepo(),
	}
}

func (m *memRepoManager) Devices(db dbx.DBTX) devicesrepo.Repository         { return m.devices }
func (m *memRepoManager) Credentials(db dbx.DBTX) credentialsrepo.Repository  { return m.creds }
func (m *memRepoManager) Listings(db dbx.DBTX) listingsrepo.Repository        { return m.lists }
func (m *memRepoManager) Rentals(db dbx.DBTX) rentalsrepo.Repository          { return m.rentals }
func (m *memRepoManager) Ports(db dbx.DBTX) portsrepo.Repository              { return m.ports }
func (m *memRepoManager) Users(db dbx.DBTX) usersrepo.Repository              { return m.users }
func (m *memRepoManager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }

// fakeMarketplace records calls so tests can assert on ordering and payloads.
type fakeMarketplace struct {
	calls []string

	slugs     []string
	createErr error
	removeErr error
	refundErr error
}

func (f *fakeMarketplace) CreateListing(ctx context.Context, data marketplace.ListingData) (string, error) {
	f.calls = append(f.calls, "create:"+data.DeviceID)
	if f.createErr != nil {
		return "", f.createErr
	}
	slug := "slug-" + data.DeviceID
	f.slugs = append(f.slugs, slug)
	return slug, nil
}

func (f *fakeMarketplace) RemoveListing(ctx context.Context, slug string) error {
	f.calls = append(f.calls, "remove:"+slug)
	return f.removeErr
}

func (f *fakeMarketplace) SendRefund(ctx context.Context, refund marketplace.Refund) error {
	f.calls = append(f.calls, "refund:"+refund.Address)
	return f.refundErr
}
