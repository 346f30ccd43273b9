package report

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ippel-tech/ippel-rnc/internal/authz"
	"github.com/ippel-tech/ippel-rnc/internal/config"
	"github.com/ippel-tech/ippel-rnc/internal/db/controller/fieldlock"
	"github.com/ippel-tech/ippel-rnc/internal/db/controller/grouppermission"
	reportctl "github.com/ippel-tech/ippel-rnc/internal/db/controller/report"
	"github.com/ippel-tech/ippel-rnc/internal/db/models"
	"github.com/ippel-tech/ippel-rnc/internal/notify"
	"github.com/ippel-tech/ippel-rnc/internal/web/handler"
	websess "github.com/ippel-tech/ippel-rnc/internal/web/session"
)

// testStorage is a minimal in-memory implementation of storage.Storage for tests.
type testStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ storage.Storage = (*testStorage)(nil)

func (s *testStorage) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := s.data[key]
	out := make([]byte, len(v))
	copy(out, v)

	return out, nil
}

func (s *testStorage) Set(key string, val []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, len(val))
	copy(buf, val)
	s.data[key] = buf

	return nil
}

func (s *testStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)

	return nil
}

func (s *testStorage) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string][]byte)

	return nil
}

func (s *testStorage) Close() error { return nil }

// fixture bundles the wired handler with its database and services.
type fixture struct {
	app   *fiber.App
	db    *gorm.DB
	authz *authz.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	websess.Init(&testStorage{data: make(map[string][]byte)})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	err = db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.GroupPermission{},
		&models.FieldLock{},
		&models.Report{},
		&models.ReportShare{},
		&models.ChangeRecord{},
		&models.Notification{},
	)
	require.NoError(t, err, "failed to migrate test database")

	app := fiber.New()
	authService := authz.NewService(db, 128, time.Minute)
	notifyService := notify.NewService(config.Notify{MaxAttempts: 10, RepeatIntervalMinutes: 5})

	var s Service
	s.Init(app, &config.Config{}, db, authService, notifyService)

	return &fixture{app: app, db: db, authz: authService}
}

// loginUser creates a user, writes a session and returns (userID, sessionID).
func (f *fixture) loginUser(t *testing.T, username string, role models.Role, groupID *uint) (uint64, string) {
	t.Helper()

	u := models.User{
		Username: username,
		Name:     username,
		Active:   true,
		Role:     role,
		GroupID:  groupID,
	}
	require.NoError(t, f.db.Create(&u).Error)

	sessionID := websess.GenerateSessionID()
	data := &websess.Data{User: u}
	require.NoError(t, data.Write(sessionID, time.Minute))

	return u.ID, sessionID
}

func (f *fixture) createGroup(t *testing.T, name string, permissions ...string) uint {
	t.Helper()

	g := models.Group{Name: name}
	require.NoError(t, f.db.Create(&g).Error)

	for _, p := range permissions {
		_, err := grouppermission.Set(f.db, g.ID, p, true)
		require.NoError(t, err)
	}

	return g.ID
}

func (f *fixture) request(t *testing.T, method, target, sessionID, body string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: websess.CookieName, Value: sessionID})
	}

	resp, err := f.app.Test(req, -1)
	require.NoError(t, err, "app.Test failed")

	return resp
}

func decodeMap(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()

	defer func() {
		_ = resp.Body.Close()
	}()

	var m map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&m))

	return m
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	_, admin := f.loginUser(t, "admin", models.RoleAdmin, nil)

	resp := f.request(t, http.MethodPost, Path, admin,
		`{"title":"Peça fora de especificação","description":"Dimensões divergentes"}`)

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeMap(t, resp)
	assert.NotZero(t, body["id"])
	assert.Contains(t, body["number"], "RNC-")
	assert.Equal(t, string(models.StatusPending), body["status"])

	// creation is change-logged
	var count int64
	require.NoError(t, f.db.Model(&models.ChangeRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateFansOutToAssignee(t *testing.T) {
	f := newFixture(t)
	_, admin := f.loginUser(t, "admin", models.RoleAdmin, nil)
	assigneeID, _ := f.loginUser(t, "bruno", models.RoleUser, nil)

	resp := f.request(t, http.MethodPost, Path, admin,
		`{"title":"RNC","assigned_to":`+strconv.FormatUint(assigneeID, 10)+`}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close() //nolint:errcheck

	var rows []models.Notification
	require.NoError(t, f.db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, assigneeID, rows[0].RecipientID)
	assert.Equal(t, "Nova RNC registrada", rows[0].Title)
}

func TestCreateRequiresPermission(t *testing.T) {
	f := newFixture(t)

	// ungrouped plain user has no grants at all
	_, sess := f.loginUser(t, "carla", models.RoleUser, nil)

	resp := f.request(t, http.MethodPost, Path, sess, `{"title":"RNC"}`)
	defer resp.Body.Close() //nolint:errcheck

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCreateGrantedByGroup(t *testing.T) {
	f := newFixture(t)

	groupID := f.createGroup(t, "Qualidade", authz.PermReportCreate)
	_, sess := f.loginUser(t, "ana", models.RoleUser, &groupID)

	resp := f.request(t, http.MethodPost, Path, sess, `{"title":"RNC da qualidade"}`)
	defer resp.Body.Close() //nolint:errcheck

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestCreateLockedField(t *testing.T) {
	f := newFixture(t)

	groupID := f.createGroup(t, "Operadores", authz.PermReportCreate)
	_, err := fieldlock.Set(f.db, groupID, "description", models.ContextCreation, true, false)
	require.NoError(t, err)

	_, sess := f.loginUser(t, "davi", models.RoleUser, &groupID)

	// setting the locked field is rejected with the generic denial
	resp := f.request(t, http.MethodPost, Path, sess,
		`{"title":"RNC","description":"não posso"}`)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	body := decodeMap(t, resp)
	assert.Equal(t, handler.MsgForbidden, body["error"])

	// leaving it empty passes
	resp = f.request(t, http.MethodPost, Path, sess, `{"title":"RNC"}`)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestCreateRequiredField(t *testing.T) {
	f := newFixture(t)

	groupID := f.createGroup(t, "Qualidade", authz.PermReportCreate)
	_, err := fieldlock.Set(f.db, groupID, "description", models.ContextCreation, false, true)
	require.NoError(t, err)

	_, sess := f.loginUser(t, "ana", models.RoleUser, &groupID)

	resp := f.request(t, http.MethodPost, Path, sess, `{"title":"RNC"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeMap(t, resp)
	assert.Contains(t, body["error"], "Campo obrigatório")

	resp = f.request(t, http.MethodPost, Path, sess,
		`{"title":"RNC","description":"preenchido"}`)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestUpdateFieldContexts(t *testing.T) {
	f := newFixture(t)

	groupID := f.createGroup(t, "Operadores", authz.PermReportEdit)
	// title locked only while the report is pending
	_, err := fieldlock.Set(f.db, groupID, "title", models.ContextCreation, true, false)
	require.NoError(t, err)

	actorID, sess := f.loginUser(t, "davi", models.RoleUser, &groupID)

	rpt, err := reportctl.Create(f.db, "original", "", actorID, nil)
	require.NoError(t, err)
	target := Path + "/" + strconv.FormatUint(rpt.ID, 10) + "/field"

	// pending report: creation lock applies
	resp := f.request(t, http.MethodPost, target, sess, `{"field":"title","value":"novo"}`)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// once in progress the response context rules, which has no lock
	_, err = reportctl.Respond(f.db, rpt.ID)
	require.NoError(t, err)

	resp = f.request(t, http.MethodPost, target, sess, `{"field":"title","value":"novo"}`)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	got, err := reportctl.Get(f.db, rpt.ID)
	require.NoError(t, err)
	assert.Equal(t, "novo", got.Title)
}

func TestRespondAndFinalize(t *testing.T) {
	f := newFixture(t)
	actorID, admin := f.loginUser(t, "admin", models.RoleAdmin, nil)

	rpt, err := reportctl.Create(f.db, "RNC", "", actorID, nil)
	require.NoError(t, err)
	base := Path + "/" + strconv.FormatUint(rpt.ID, 10)

	resp := f.request(t, http.MethodPost, base+"/respond", admin, `{"response":"analisando"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeMap(t, resp)
	assert.Equal(t, string(models.StatusInProgress), body["status"])

	resp = f.request(t, http.MethodPost, base+"/finalize", admin, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decodeMap(t, resp)
	assert.Equal(t, string(models.StatusFinalized), body["status"])

	// finalized is terminal
	resp = f.request(t, http.MethodPost, base+"/respond", admin, `{"response":"tarde"}`)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	actorID, admin := f.loginUser(t, "admin", models.RoleAdmin, nil)

	rpt, err := reportctl.Create(f.db, "RNC", "", actorID, nil)
	require.NoError(t, err)
	target := Path + "/" + strconv.FormatUint(rpt.ID, 10) + "/delete"

	resp := f.request(t, http.MethodPost, target, admin, "")
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got, err := reportctl.Get(f.db, rpt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateDeleted, got.State)

	// deleted reports reject further mutation
	resp = f.request(t, http.MethodPost,
		Path+"/"+strconv.FormatUint(rpt.ID, 10)+"/finalize", admin, "")
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestUnknownReport(t *testing.T) {
	f := newFixture(t)
	_, admin := f.loginUser(t, "admin", models.RoleAdmin, nil)

	resp := f.request(t, http.MethodPost, Path+"/9999/finalize", admin, "")
	defer resp.Body.Close() //nolint:errcheck

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHistory(t *testing.T) {
	f := newFixture(t)
	actorID, admin := f.loginUser(t, "admin", models.RoleAdmin, nil)

	resp := f.request(t, http.MethodPost, Path, admin, `{"title":"RNC com histórico"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeMap(t, resp)
	id := strconv.FormatFloat(created["id"].(float64), 'f', 0, 64)

	resp = f.request(t, http.MethodPost, Path+"/"+id+"/field", admin,
		`{"field":"description","value":"detalhes"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close() //nolint:errcheck

	resp = f.request(t, http.MethodGet, Path+"/"+id+"/history", admin, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var items []historyItem
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&items))
	_ = resp.Body.Close() //nolint:errcheck

	require.Len(t, items, 2)
	assert.Equal(t, string(models.ChangeCreated), items[0].ChangeType)
	assert.Equal(t, string(models.ChangeUpdated), items[1].ChangeType)
	assert.Equal(t, "description", items[1].Field)
	assert.Equal(t, actorID, items[0].ActorID)
}

func TestList(t *testing.T) {
	f := newFixture(t)
	actorID, admin := f.loginUser(t, "admin", models.RoleAdmin, nil)

	first, err := reportctl.Create(f.db, "primeira", "", actorID, nil)
	require.NoError(t, err)
	second, err := reportctl.Create(f.db, "segunda", "", actorID, nil)
	require.NoError(t, err)
	require.NoError(t, reportctl.SoftDelete(f.db, first.ID))

	resp := f.request(t, http.MethodGet, Path, admin, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var items []reportItem
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&items))
	_ = resp.Body.Close() //nolint:errcheck

	require.Len(t, items, 1)
	assert.Equal(t, second.ID, items[0].ID)
}
