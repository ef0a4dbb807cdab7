package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/shuleapp/shule/apps/api/echo"
	"github.com/shuleapp/shule/core"
	"github.com/shuleapp/shule/core/assignment"
	"github.com/shuleapp/shule/core/distribution"
	"github.com/shuleapp/shule/core/notification"
	"github.com/shuleapp/shule/core/user"
	emailsvc "github.com/shuleapp/shule/services/email"
	dummydb "github.com/shuleapp/shule/storage/database/dummy"
	testutil "github.com/shuleapp/shule/tests"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type testApp struct {
	server  *echoapi.Server
	conf    *core.Config
	usrRepo user.Repository
	usrSvc  *user.Service
	ledger  *notification.Service
	assign  *assignment.Service
	repo    assignment.Repository
}

func setup(t *testing.T) *testApp {
	t.Helper()

	conf := &core.Config{
		TestMode:  true,
		AppName:   "Shule",
		SecretKey: "test-secret",
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
		},
	}

	db, err := dummydb.Open()
	require.NoError(t, err)

	usrRepo := dummydb.NewUserRepository(db)
	assignRepo := dummydb.NewAssignmentRepository(db)
	notifRepo := dummydb.NewNotificationRepository(db)
	audit := dummydb.NewAuditLogger()
	clock := testutil.NewClock(testNow)
	logger := testutil.Logger{}
	directory := user.NewDirectory(usrRepo)

	usrSvc := user.NewService(usrRepo, audit, clock)
	ledger := notification.NewService(notifRepo, directory, emailsvc.NewServiceMock(), clock, logger)
	assignSvc := assignment.NewService(assignRepo, directory, ledger, clock, logger)
	engine := distribution.NewEngine(usrRepo, assignRepo, ledger, audit, logger)

	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:            conf,
		Logger:          logger,
		Clock:           clock,
		UserSvc:         usrSvc,
		AssignmentSvc:   assignSvc,
		NotificationSvc: ledger,
		Engine:          engine,
		Validate:        validate,
		Translator:      translator,
		DisableReqLogs:  true,
	})
	return &testApp{
		server:  server,
		conf:    conf,
		usrRepo: usrRepo,
		usrSvc:  usrSvc,
		ledger:  ledger,
		assign:  assignSvc,
		repo:    assignRepo,
	}
}

func (app *testApp) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)
	return rec
}

func (app *testApp) token(t *testing.T, usr user.User) string {
	t.Helper()

	token, err := echoapi.GenerateToken(app.conf, echoapi.GetUserClaims(app.conf, usr))
	require.NoError(t, err)
	return token
}

func TestAPI_login(t *testing.T) {
	app := setup(t)
	hero := testutil.CreateStudent(t, app.usrRepo, "hero", "BCA")

	rec := app.request(t, http.MethodPost, "/v1/users/login", "", echo.Map{
		"username": hero.Username,
		"password": "Password1!",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.NotEmpty(t, res.Token)

	// wrong password
	rec = app.request(t, http.MethodPost, "/v1/users/login", "", echo.Map{
		"username": hero.Username,
		"password": "nope",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// unauthenticated access is rejected
	rec = app.request(t, http.MethodGet, "/v1/notifications", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPI_admission(t *testing.T) {
	app := setup(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin", "admin@test.cd", user.RoleAdmin, "", "", true)
	adminToken := app.token(t, admin)

	rec := app.request(t, http.MethodPost, "/v1/users/register", "", echo.Map{
		"name":             "New Hero",
		"username":         "newhero",
		"email":            "newhero@test.cd",
		"role":             user.RoleStudent,
		"course":           "BCA",
		"password":         "Password1!",
		"password_confirm": "Password1!",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var reg user.PendingRegistration
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reg))

	// a non-admin cannot admit
	hero := testutil.CreateStudent(t, app.usrRepo, "hero", "BCA")
	rec = app.request(t, http.MethodPost, "/v1/users/registrations/"+reg.ID+"/approve", app.token(t, hero), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.request(t, http.MethodPost, "/v1/users/registrations/"+reg.ID+"/approve", adminToken, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	usr, err := app.usrSvc.GetByUsernameOrEmail(ctx, "newhero")
	require.NoError(t, err)
	assert.True(t, usr.IsActive)

	// approving twice is a 404: the pending row is gone
	rec = app.request(t, http.MethodPost, "/v1/users/registrations/"+reg.ID+"/approve", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_teacherSubjectConflict(t *testing.T) {
	app := setup(t)
	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin", "admin@test.cd", user.RoleAdmin, "", "", true)
	adminToken := app.token(t, admin)
	testutil.CreateTeacher(t, app.usrRepo, "newton", "Physics", "BCA")

	rec := app.request(t, http.MethodPost, "/v1/users/register", "", echo.Map{
		"name":             "Tesla",
		"username":         "nikola",
		"email":            "nikola@test.cd",
		"role":             user.RoleTeacher,
		"subject":          "physics",
		"password":         "Password1!",
		"password_confirm": "Password1!",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var reg user.PendingRegistration
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reg))

	rec = app.request(t, http.MethodPost, "/v1/users/registrations/"+reg.ID+"/approve", adminToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
}

func TestAPI_assignmentLifecycle(t *testing.T) {
	app := setup(t)
	teacher := testutil.CreateTeacher(t, app.usrRepo, "newton", "Physics", "BCA")
	hero := testutil.CreateStudent(t, app.usrRepo, "hero", "BCA")
	teacherToken := app.token(t, teacher)
	heroToken := app.token(t, hero)

	// students cannot publish
	rec := app.request(t, http.MethodPost, "/v1/assignments", heroToken, echo.Map{})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.request(t, http.MethodPost, "/v1/assignments", teacherToken, echo.Map{
		"title":        "Lab report",
		"subject":      "Physics",
		"due_date":     testNow.AddDate(0, 0, 10),
		"period_start": testNow,
		"period_end":   testNow.AddDate(0, 0, 7),
		"max_score":    20,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Assignment struct {
			ID           string `json:"id"`
			Course       string `json:"course"`
			PeriodStatus string `json:"period_status"`
		} `json:"assignment"`
		Distribution distribution.Result `json:"distribution"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "BCA", created.Assignment.Course)
	assert.Equal(t, string(core.PeriodActive), created.Assignment.PeriodStatus)
	assert.Equal(t, 1, created.Distribution.Notified)

	// the cohort sees it in their feed
	rec = app.request(t, http.MethodGet, "/v1/notifications/unread-count", heroToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count": 1}`, rec.Body.String())

	// submit
	rec = app.request(t, http.MethodPost, fmt.Sprintf("/v1/assignments/%s/submissions", created.Assignment.ID), heroToken, echo.Map{
		"file_path": "uploads/lab-v1.pdf",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sub assignment.Submission
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sub))
	assert.Equal(t, assignment.StatusSubmitted, sub.Status)

	// grade
	rec = app.request(t, http.MethodPost, "/v1/submissions/"+sub.ID+"/grade", teacherToken, echo.Map{
		"score":    18,
		"feedback": "solid work",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var graded assignment.Submission
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &graded))
	require.NotNil(t, graded.Score)
	assert.Equal(t, 18, *graded.Score)
	assert.Equal(t, assignment.StatusGraded, graded.Status)

	// out-of-range score is a validation error
	rec = app.request(t, http.MethodPost, "/v1/submissions/"+sub.ID+"/grade", teacherToken, echo.Map{"score": 25})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_notifications(t *testing.T) {
	app := setup(t)
	ctx := context.Background()
	hero := testutil.CreateStudent(t, app.usrRepo, "hero", "BCA")
	king := testutil.CreateStudent(t, app.usrRepo, "king", "BCA")
	heroToken := app.token(t, hero)

	n, _, err := app.ledger.Create(ctx, notification.NewNotification{
		UserID:   hero.ID,
		Title:    "Welcome",
		Category: notification.CategorySystem,
	})
	require.NoError(t, err)

	rec := app.request(t, http.MethodGet, "/v1/notifications", heroToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var items []struct {
		ID      string `json:"id"`
		TimeAgo string `json:"time_ago"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Just now", items[0].TimeAgo)

	// another user cannot read-mark it
	rec = app.request(t, http.MethodPost, "/v1/notifications/"+n.ID+"/read", app.token(t, king), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.request(t, http.MethodPost, "/v1/notifications/"+n.ID+"/read", heroToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = app.request(t, http.MethodGet, "/v1/notifications/unread-count", heroToken, nil)
	assert.JSONEq(t, `{"count": 0}`, rec.Body.String())

	// preferences default to all-enabled and can be updated
	rec = app.request(t, http.MethodGet, "/v1/notifications/preferences", heroToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var prefs notification.Preferences
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prefs))
	assert.Equal(t, notification.DefaultPreferences(hero.ID), prefs)

	prefs.DeadlineReminders = false
	rec = app.request(t, http.MethodPut, "/v1/notifications/preferences", heroToken, prefs)
	require.Equal(t, http.StatusOK, rec.Code)
	got, err := app.ledger.GetPreferences(ctx, hero.ID)
	require.NoError(t, err)
	assert.False(t, got.DeadlineReminders)
}
