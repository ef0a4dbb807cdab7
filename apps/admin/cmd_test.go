package main

import (
	"context"
	"testing"
	"time"

	"github.com/shuleapp/shule/core"
	"github.com/shuleapp/shule/core/distribution"
	"github.com/shuleapp/shule/core/notification"
	"github.com/shuleapp/shule/core/reminder"
	"github.com/shuleapp/shule/core/user"
	dummydb "github.com/shuleapp/shule/storage/database/dummy"
	testutil "github.com/shuleapp/shule/tests"
)

func setup(t *testing.T) (*commandLine, user.Repository) {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	usrRepo := dummydb.NewUserRepository(db)
	assignRepo := dummydb.NewAssignmentRepository(db)
	clock := testutil.NewClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	logger := testutil.Logger{}
	audit := dummydb.NewAuditLogger()

	ledger := notification.NewService(dummydb.NewNotificationRepository(db), user.NewDirectory(usrRepo), nil, clock, logger)
	engine := distribution.NewEngine(usrRepo, assignRepo, ledger, audit, logger)
	scheduler := reminder.NewScheduler(engine, assignRepo, ledger, clock, logger, core.ReminderConfig{
		Schedule: "@daily", LeadTime: 72 * time.Hour, CleanupMaxAgeDays: 30,
	})

	cli := &commandLine{
		usrRepo:   usrRepo,
		usrSvc:    user.NewService(usrRepo, audit, clock),
		engine:    engine,
		scheduler: scheduler,
		clock:     clock,
	}
	return cli, usrRepo
}

func Test_commandLine_createadmin(t *testing.T) {
	cli, usrRepo := setup(t)
	ctx := context.Background()

	orig := readPasswordFunc
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("Password1!"), nil }
	defer func() { readPasswordFunc = orig }()

	if err := cli.run([]string{"admin", "createadmin", "-username", "Boss", "-email", "Boss@test.cd"}); err != nil {
		t.Fatalf("run(createadmin) failed: %v", err)
	}

	usr, err := usrRepo.GetUserByUsernameOrEmail(ctx, "boss")
	if err != nil {
		t.Fatalf("GetUserByUsernameOrEmail() failed: %v", err)
	}
	if usr.Role != user.RoleAdmin || !usr.IsActive {
		t.Errorf("created user = %+v, want active admin", usr)
	}
	if err := usr.CheckPassword("Password1!"); err != nil {
		t.Error("password was not set")
	}

	// running again updates the same account
	if err := cli.run([]string{"admin", "createadmin", "-username", "boss", "-email", "boss@test.cd"}); err != nil {
		t.Fatalf("run(createadmin) failed on update: %v", err)
	}
	users, _ := usrRepo.FilterUsers(ctx, user.QueryFilter{Role: user.RoleAdmin})
	if len(users) != 1 {
		t.Errorf("admins = %d, want 1", len(users))
	}
}

func Test_commandLine_run(t *testing.T) {
	cli, usrRepo := setup(t)

	testutil.CreateTeacher(t, usrRepo, "newton", "Physics", "BCA")
	testutil.CreateStudent(t, usrRepo, "hero", "BCA")

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{name: "no args", args: []string{"admin"}, wantErr: errHelp},
		{name: "unknown command", args: []string{"admin", "dance"}, wantErr: errHelp},
		{name: "repair", args: []string{"admin", "repair"}},
		{name: "remind", args: []string{"admin", "remind"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(tt.args); err != tt.wantErr {
				t.Errorf("run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
