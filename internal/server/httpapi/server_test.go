package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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
	"github.com/p2pvps/marketd/internal/server/services"
)

// --- in-memory repositories, enough for routing tests ---

type stubUsersRepo struct {
	users map[string]models.User
}

func (r *stubUsersRepo) Create(ctx context.Context, u *models.User) error {
	for _, stored := range r.users {
		if stored.UserName == u.UserName {
			return common.ErrConflict
		}
	}
	r.users[u.ID] = *u
	return nil
}

func (r *stubUsersRepo) GetByLogin(ctx context.Context, userName string) (*models.User, error) {
	for _, u := range r.users {
		if u.UserName == userName {
			cp := u
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *stubUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := u
	return &cp, nil
}

func (r *stubUsersRepo) Delete(ctx context.Context, id string) error {
	delete(r.users, id)
	return nil
}

type stubDevicesRepo struct {
	devices map[string]models.Device
}

func (r *stubDevicesRepo) Create(ctx context.Context, d *models.Device) error {
	r.devices[d.ID] = *d
	return nil
}

func (r *stubDevicesRepo) GetByID(ctx context.Context, id string) (*models.Device, error) {
	d, ok := r.devices[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := d
	return &cp, nil
}

func (r *stubDevicesRepo) List(ctx context.Context) ([]*models.Device, error) {
	out := []*models.Device{}
	for _, d := range r.devices {
		cp := d
		out = append(out, &cp)
	}
	return out, nil
}

func (r *stubDevicesRepo) ListByOwner(ctx context.Context, owner string) ([]*models.Device, error) {
	out := []*models.Device{}
	for _, d := range r.devices {
		if d.OwnerUser == owner {
			cp := d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *stubDevicesRepo) Update(ctx context.Context, d *models.Device) error {
	if _, ok := r.devices[d.ID]; !ok {
		return common.ErrNotFound
	}
	r.devices[d.ID] = *d
	return nil
}

func (r *stubDevicesRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.devices[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.devices, id)
	return nil
}

type stubCredentialsRepo struct {
	creds map[string]models.DeviceCredential
}

func (r *stubCredentialsRepo) Create(ctx context.Context, c *models.DeviceCredential) error {
	r.creds[c.ID] = *c
	return nil
}

func (r *stubCredentialsRepo) GetByID(ctx context.Context, id string) (*models.DeviceCredential, error) {
	c, ok := r.creds[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := c
	return &cp, nil
}

func (r *stubCredentialsRepo) GetByDeviceID(ctx context.Context, deviceID string) (*models.DeviceCredential, error) {
	for _, c := range r.creds {
		if c.DeviceID == deviceID {
			cp := c
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *stubCredentialsRepo) Update(ctx context.Context, c *models.DeviceCredential) error {
	if _, ok := r.creds[c.ID]; !ok {
		return common.ErrNotFound
	}
	r.creds[c.ID] = *c
	return nil
}

func (r *stubCredentialsRepo) Delete(ctx context.Context, id string) error {
	delete(r.creds, id)
	return nil
}

type stubListingsRepo struct {
	listings map[string]models.Listing
}

func (r *stubListingsRepo) Create(ctx context.Context, l *models.Listing) error {
	r.listings[l.ID] = *l
	return nil
}

func (r *stubListingsRepo) GetByID(ctx context.Context, id string) (*models.Listing, error) {
	l, ok := r.listings[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := l
	return &cp, nil
}

func (r *stubListingsRepo) GetByDeviceID(ctx context.Context, deviceID string) (*models.Listing, error) {
	return nil, common.ErrNotFound
}

func (r *stubListingsRepo) List(ctx context.Context) ([]*models.Listing, error) {
	out := []*models.Listing{}
	for _, l := range r.listings {
		cp := l
		out = append(out, &cp)
	}
	return out, nil
}

func (r *stubListingsRepo) Update(ctx context.Context, l *models.Listing) error {
	r.listings[l.ID] = *l
	return nil
}

func (r *stubListingsRepo) Delete(ctx context.Context, id string) error {
	delete(r.listings, id)
	return nil
}

type stubRentalsRepo struct {
	ids []string
}

func (r *stubRentalsRepo) Add(ctx context.Context, deviceID string, addedAt time.Time) error {
	r.ids = append(r.ids, deviceID)
	return nil
}

func (r *stubRentalsRepo) List(ctx context.Context) ([]string, error) {
	out := []string{}
	out = append(out, r.ids...)
	return out, nil
}

func (r *stubRentalsRepo) Exists(ctx context.Context, deviceID string) (bool, error) {
	for _, id := range r.ids {
		if id == deviceID {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubRentalsRepo) Remove(ctx context.Context, deviceID string) error {
	for i, id := range r.ids {
		if id == deviceID {
			r.ids = append(r.ids[:i], r.ids[i+1:]...)
			return nil
		}
	}
	return common.ErrNotFound
}

type stubPortsRepo struct {
	ports []int
}

func (r *stubPortsRepo) LastAllocated(ctx context.Context) (int, bool, error) {
	if len(r.ports) == 0 {
		return 0, false, nil
	}
	return r.ports[len(r.ports)-1], true, nil
}

func (r *stubPortsRepo) Append(ctx context.Context, port int) error {
	r.ports = append(r.ports, port)
	return nil
}

func (r *stubPortsRepo) Remove(ctx context.Context, port int) error {
	for i, p := range r.ports {
		if p == port {
			r.ports = append(r.ports[:i], r.ports[i+1:]...)
			return nil
		}
	}
	return common.ErrNotFound
}

func (r *stubPortsRepo) Used(ctx context.Context) ([]int, error) {
	out := []int{}
	out = append(out, r.ports...)
	return out, nil
}

type stubRepoManager struct {
	users    *stubUsersRepo
	devices  *stubDevicesRepo
	creds    *stubCredentialsRepo
	listings *stubListingsRepo
	rentals  *stubRentalsRepo
	ports    *stubPortsRepo
}

func newStubRepoManager() *stubRepoManager {
	return &stubRepoManager{
		users:    &stubUsersRepo{users: make(map[string]models.User)},
		devices:  &stubDevicesRepo{devices: make(map[string]models.Device)},
		creds:    &stubCredentialsRepo{creds: make(map[string]models.DeviceCredential)},
		listings: &stubListingsRepo{listings: make(map[string]models.Listing)},
		rentals:  &stubRentalsRepo{},
		ports:    &stubPortsRepo{},
	}
}

func (m *stubRepoManager) Devices(db dbx.DBTX) devicesrepo.Repository         { return m.devices }
func (m *stubRepoManager) Credentials(db dbx.DBTX) credentialsrepo.Repository { return m.creds }
func (m *stubRepoManager) Listings(db dbx.DBTX) listingsrepo.Repository       { return m.listings }
func (m *stubRepoManager) Rentals(db dbx.DBTX) rentalsrepo.Repository         { return m.rentals }
func (m *stubRepoManager) Ports(db dbx.DBTX) portsrepo.Repository             { return m.ports }
func (m *stubRepoManager) Users(db dbx.DBTX) usersrepo.Repository             { return m.users }
func (m *stubRepoManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return nil
}

type stubMarketplace struct{}

func (stubMarketplace) CreateListing(ctx context.Context, data marketplace.ListingData) (string, error) {
	return "slug-" + data.DeviceID, nil
}
func (stubMarketplace) RemoveListing(ctx context.Context, slug string) error       { return nil }
func (stubMarketplace) SendRefund(ctx context.Context, r marketplace.Refund) error { return nil }

type stubImages struct{}

func (stubImages) PresignedPutURL(ctx context.Context) (string, string, error) {
	return "key-1", "http://upload/key-1", nil
}

func (stubImages) PresignedGetURL(ctx context.Context, key string) (string, error) {
	return "http://images/" + key, nil
}

// --- harness ---

type harness struct {
	router *echo.Echo
	repos  *stubRepoManager
	mock   sqlmock.Sqlmock
	cfg    *config.Config
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{}
	cfg.LoadDefaults()

	rm := newStubRepoManager()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	pool := services.NewPortPool(db, rm, cfg, logger)
	rotator := services.NewCredentialRotator(db, rm, pool, logger)
	listings := services.NewListingManager(db, rm, stubMarketplace{}, stubImages{}, cfg, logger)
	registry := services.NewLeaseRegistry(db, rm, logger)
	orch := services.NewLeaseOrchestrator(db, rm, pool, rotator, listings, registry, cfg, logger)
	users := services.NewUserService(db, rm, cfg, logger)
	catalog := services.NewDeviceCatalog(db, rm, logger)

	srv := NewServer(users, catalog, orch, pool, registry, listings, stubImages{}, logger)
	return &harness{router: srv.Router(cfg), repos: rm, mock: mock, cfg: cfg}
}

func (h *harness) do(method, path, body, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func (h *harness) loginAs(t *testing.T, username string) string {
	t.Helper()

	rec := h.do(http.MethodPost, "/users", `{"username":"`+username+`","password":"pw"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = h.do(http.MethodPost, "/auth", `{"username":"`+username+`","password":"pw"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

// --- tests ---

func TestAPIRequiresToken(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/api/listings", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodGet, "/api/listings", "", "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUserRegistrationAndLogin(t *testing.T) {
	h := newHarness(t)
	token := h.loginAs(t, "alice")

	rec := h.do(http.MethodGet, "/api/listings", "", token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"listings":[]}`, rec.Body.String())
}

func TestDuplicateUserConflict(t *testing.T) {
	h := newHarness(t)
	h.loginAs(t, "alice")

	rec := h.do(http.MethodPost, "/users", `{"username":"alice","password":"pw2"}`, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListingInvalidIDUnprocessable(t *testing.T) {
	h := newHarness(t)
	token := h.loginAs(t, "alice")

	rec := h.do(http.MethodGet, "/api/listings/not-a-uuid", "", token)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDeviceLifecycleOverHTTP(t *testing.T) {
	h := newHarness(t)
	token := h.loginAs(t, "owner")

	// device creation runs in a transaction; registration allocates a port.
	h.mock.ExpectBegin()
	h.mock.ExpectCommit()
	h.mock.ExpectBegin()
	h.mock.ExpectCommit()

	rec := h.do(http.MethodPost, "/api/devices", `{"deviceName":"pi-3","rentHourlyRate":"0.15"}`, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Device deviceJSON `json:"device"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.Device.ID)
	assert.NotEmpty(t, created.Device.OwnerUser)
	assert.NotEmpty(t, created.Device.PrivateData)

	rec = h.do(http.MethodGet, "/client/register/"+created.Device.ID, "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var reg struct {
		Username string `json:"username"`
		Password string `json:"password"`
		ToPort   int    `json:"toPort"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reg))
	assert.Len(t, reg.Username, 10)
	assert.Len(t, reg.Password, 10)
	assert.Equal(t, h.cfg.PortBase, reg.ToPort)

	rec = h.do(http.MethodGet, "/client/expiration/"+created.Device.ID, "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var exp struct {
		Expiration string `json:"expiration"`
		Expired    bool   `json:"expired"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &exp))
	assert.False(t, exp.Expired)
	assert.NotEmpty(t, exp.Expiration)
}

func TestClientRegisterUnknownDevice(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/client/register/missing", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCredentialRoutesAdminOnly(t *testing.T) {
	h := newHarness(t)
	token := h.loginAs(t, "alice")

	rec := h.do(http.MethodGet, "/api/credentials/some-id", "", token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "plain users cannot read credentials")
}

func TestSSHPortRoutes(t *testing.T) {
	h := newHarness(t)
	token := h.loginAs(t, "ops")

	h.mock.ExpectBegin()
	h.mock.ExpectCommit()

	rec := h.do(http.MethodPost, "/api/sshport", "", token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var out struct {
		SSHPort struct {
			Username string `json:"username"`
			Password string `json:"password"`
			Port     int    `json:"port"`
		} `json:"sshPort"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, h.cfg.PortBase, out.SSHPort.Port)
	assert.Len(t, out.SSHPort.Username, 10, "allocation comes with a throwaway login")
	assert.Len(t, out.SSHPort.Password, 10)
	assert.NotEqual(t, out.SSHPort.Username, out.SSHPort.Password)

	h.mock.ExpectBegin()
	h.mock.ExpectCommit()

	rec = h.do(http.MethodDelete, "/api/sshport/"+strconv.Itoa(out.SSHPort.Port), "", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	h.mock.ExpectBegin()
	h.mock.ExpectRollback()

	rec = h.do(http.MethodDelete, "/api/sshport/"+strconv.Itoa(out.SSHPort.Port), "", token)
	assert.Equal(t, http.StatusNotFound, rec.Code, "second release of the same port must fail")

	rec = h.do(http.MethodDelete, "/api/sshport/not-a-number", "", token)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRentedDeviceRoutes(t *testing.T) {
	h := newHarness(t)
	token := h.loginAs(t, "admin-ops")
	h.repos.devices.devices["d1"] = models.Device{ID: "d1", RentHourlyRate: "1"}

	h.mock.ExpectBegin()
	h.mock.ExpectCommit()

	rec := h.do(http.MethodPost, "/api/renteddevices", `{"deviceId":"d1"}`, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = h.do(http.MethodGet, "/api/renteddevices", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"devices":["d1"]}`, rec.Body.String())

	rec = h.do(http.MethodGet, "/api/renteddevices/renew/d1", "", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(http.MethodGet, "/api/renteddevices/renew/d2", "", token)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "unknown device cannot be renewed")
}
