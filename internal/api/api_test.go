package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sykell/metabear/internal/fetcher"
	"github.com/sykell/metabear/internal/middleware"
	"github.com/sykell/metabear/internal/tabs"
)

const (
	testSecret = "test-secret"
	pageHTML   = `<!doctype html><html lang="en"><head><title>Fixture page</title>
<meta name="description" content="A fixture"></head>
<body><h1>Fixture</h1><h2>Details</h2><a href="/about">About</a></body></html>`
)

type testEnv struct {
	router  *gin.Engine
	mock    sqlmock.Sqlmock
	site    *httptest.Server
	manager *tabs.Manager
	token   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(pageHTML))
	}))
	t.Cleanup(site.Close)

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	dbConn, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Discard,
	})
	require.NoError(t, err)

	manager := tabs.NewManager(tabs.Options{Provider: fetcher.NewHTTPProvider(nil)})
	queue := tabs.NewQueue(manager, &tabs.QueueConfig{Workers: 1, QueueSize: 10, Timeout: 5 * time.Second})
	require.NoError(t, queue.Start())
	t.Cleanup(func() { queue.Stop() })

	router := NewRouter(Dependencies{
		DB:      dbConn,
		Manager: manager,
		Queue:   queue,
		Auth:    &AuthConfig{JWTSecret: testSecret, TokenDuration: time.Hour},
	})

	return &testEnv{
		router:  router,
		mock:    mock,
		site:    site,
		manager: manager,
		token:   tokenFor(t, 1, "admin"),
	}
}

func tokenFor(t *testing.T, userID uint, username string) string {
	token, _, err := middleware.IssueToken(testSecret, userID, username, time.Hour)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func (e *testEnv) openTab(t *testing.T, url string) int {
	t.Helper()
	w := e.do(http.MethodPost, "/tabs", e.token, gin.H{"url": url})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return int(decode(t, w)["id"].(float64))
}

func tabPath(id int, suffix string) string {
	return "/tabs/" + strconv.Itoa(id) + suffix
}

func TestPublicRoutes(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])

	w = env.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/tabs", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTabAuditLifecycle(t *testing.T) {
	env := newTestEnv(t)
	id := env.openTab(t, env.site.URL+"/")

	w := env.do(http.MethodPost, tabPath(id, "/audit"), env.token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Nil(t, body["cached"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "Fixture page", data["metadata"].(map[string]interface{})["title"])
	assert.Len(t, data["headings"], 2)

	w = env.do(http.MethodPost, tabPath(id, "/audit"), env.token, nil)
	assert.Equal(t, true, decode(t, w)["cached"])

	w = env.do(http.MethodPost, tabPath(id, "/audit?fresh=true"), env.token, nil)
	assert.Nil(t, decode(t, w)["cached"])

	w = env.do(http.MethodPost, tabPath(id, "/audit"), env.token, nil)
	assert.Equal(t, true, decode(t, w)["cached"])

	w = env.do(http.MethodPost, tabPath(id, "/events"), env.token, gin.H{"type": "updated", "url": env.site.URL + "/next"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, env.site.URL+"/next", decode(t, w)["url"])

	w = env.do(http.MethodPost, tabPath(id, "/audit"), env.token, nil)
	body = decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Nil(t, body["cached"])

	w = env.do(http.MethodGet, "/tabs", env.token, nil)
	assert.Len(t, decode(t, w)["data"], 1)

	w = env.do(http.MethodDelete, tabPath(id, ""), env.token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, tabPath(id, ""), env.token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRestrictedAndFailedAudits(t *testing.T) {
	env := newTestEnv(t)

	restricted := env.openTab(t, "chrome://settings")
	w := env.do(http.MethodPost, tabPath(restricted, "/audit"), env.token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":false,"restricted":true}`, w.Body.String())

	missing := env.openTab(t, env.site.URL+"/missing")
	w = env.do(http.MethodPost, tabPath(missing, "/audit"), env.token, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "HTTP 404")
}

func TestTabEvents(t *testing.T) {
	env := newTestEnv(t)
	id := env.openTab(t, env.site.URL+"/")

	w := env.do(http.MethodPost, tabPath(id, "/events"), env.token, gin.H{"type": "exploded"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, tabPath(id, "/events"), env.token, gin.H{"type": "committed", "url": env.site.URL + "/frame", "frame_id": 2})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, env.site.URL+"/", decode(t, w)["url"])

	w = env.do(http.MethodPost, tabPath(id, "/events"), env.token, gin.H{"type": "removed"})
	require.Equal(t, http.StatusOK, w.Code)

	_, ok := env.manager.Get(id)
	assert.False(t, ok)
}

func TestTabsAreScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	id := env.openTab(t, env.site.URL+"/")
	other := tokenFor(t, 2, "guest")

	w := env.do(http.MethodGet, tabPath(id, ""), other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodPost, tabPath(id, "/audit"), other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodGet, "/tabs", other, nil)
	assert.Len(t, decode(t, w)["data"], 0)

	w = env.do(http.MethodGet, "/tabs/abc", env.token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMessages(t *testing.T) {
	env := newTestEnv(t)
	id := env.openTab(t, env.site.URL+"/")

	w := env.do(http.MethodPost, tabPath(id, "/messages"), env.token, `{"type":"TOGGLE_PANEL"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"panel_mounted":true}}`, w.Body.String())

	w = env.do(http.MethodPost, tabPath(id, "/messages"), env.token, `{"type":"RUN_AUDIT_FOR_TAB","tabId":`+strconv.Itoa(id)+`}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["success"])

	w = env.do(http.MethodPost, tabPath(id, "/messages"), env.token, `{"type":"SCROLL_TO_HEADING","index":1}`)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "Details", data["heading"].(map[string]interface{})["text"])
	assert.Equal(t, false, data["scrolled"])

	w = env.do(http.MethodPost, tabPath(id, "/messages"), env.token, `{"type":"SCROLL_TO_HEADING","index":-1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, tabPath(id, "/messages"), env.token, `{"type":"RUN_AUDIT_FOR_TAB","tabId":999}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, tabPath(id, "/messages"), env.token, `{"type":"FORMAT_DISK"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExport(t *testing.T) {
	env := newTestEnv(t)
	id := env.openTab(t, env.site.URL+"/")

	w := env.do(http.MethodGet, tabPath(id, "/export?fields=score,headings"), env.token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Disposition"), `attachment; filename="metabear-127-0-0-1-`))

	body := decode(t, w)
	assert.Contains(t, body, "exportedAt")
	assert.Equal(t, env.site.URL+"/", body["url"])
	assert.Contains(t, body, "seoScore")
	assert.Len(t, body["headings"], 2)
	assert.NotContains(t, body, "issues")
	assert.NotContains(t, body, "metaTags")

	w = env.do(http.MethodGet, tabPath(id, "/export?fields=secrets"), env.token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, tabPath(id, "/export?fields=,"), env.token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "no export fields selected", decode(t, w)["error"])

	restricted := env.openTab(t, "about:blank")
	w = env.do(http.MethodGet, tabPath(restricted, "/export"), env.token, nil)
	assert.JSONEq(t, `{"success":false,"restricted":true}`, w.Body.String())
}

func TestBulk(t *testing.T) {
	env := newTestEnv(t)
	first := env.openTab(t, env.site.URL+"/")
	second := env.openTab(t, env.site.URL+"/b")

	w := env.do(http.MethodPost, "/tabs/bulk", env.token, gin.H{"action": "rerun", "ids": []int{first, 999}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(1), decode(t, w)["affected"])

	w = env.do(http.MethodPost, "/tabs/bulk", env.token, gin.H{"action": "close", "ids": []int{first, second}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["affected"])
	assert.Empty(t, env.manager.List(1))

	w = env.do(http.MethodPost, "/tabs/bulk", env.token, gin.H{"action": "explode", "ids": []int{first}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("adminpass"), bcrypt.MinCost)
	require.NoError(t, err)

	env.mock.ExpectQuery("SELECT \\* FROM `users` WHERE username = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password"}).AddRow(1, "admin", string(hash)))

	w := env.do(http.MethodPost, "/auth/login", "", gin.H{"username": "admin", "password": "adminpass"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "admin", body["username"])

	token := body["token"].(string)
	w = env.do(http.MethodGet, "/tabs", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	env.mock.ExpectQuery("SELECT \\* FROM `users` WHERE username = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password"}).AddRow(1, "admin", string(hash)))

	w = env.do(http.MethodPost, "/auth/login", "", gin.H{"username": "admin", "password": "wrongpass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	env.mock.ExpectQuery("SELECT \\* FROM `users` WHERE username = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	w = env.do(http.MethodPost, "/auth/login", "", gin.H{"username": "nobody", "password": "whatever"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodPost, "/auth/login", "", gin.H{"username": "ad"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuditHistory(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectQuery("SELECT count\\(\\*\\) FROM `audit_runs`").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(21))
	env.mock.ExpectQuery("SELECT \\* FROM `audit_runs`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "address", "score", "status"}).
			AddRow(1, 1, "https://a.com/", 88, "done"))

	w := env.do(http.MethodGet, "/audits?page=2&size=10&q=a.com", env.token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, float64(21), body["total"])
	assert.Equal(t, float64(3), body["pages"])
	assert.Equal(t, float64(2), body["page"])
	assert.Len(t, body["data"], 1)

	env.mock.ExpectQuery("SELECT \\* FROM `audit_runs` WHERE id = \\? AND user_id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "address", "score", "result"}).
			AddRow(1, 1, "https://a.com/", 88, `{"score":88}`))

	w = env.do(http.MethodGet, "/audits/1", env.token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decode(t, w)
	assert.Equal(t, "https://a.com/", body["address"])
	assert.Equal(t, map[string]interface{}{"score": float64(88)}, body["result"])

	env.mock.ExpectQuery("SELECT \\* FROM `audit_runs` WHERE id = \\? AND user_id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	w = env.do(http.MethodGet, "/audits/2", env.token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodGet, "/audits/x", env.token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.NoError(t, env.mock.ExpectationsWereMet())
}
