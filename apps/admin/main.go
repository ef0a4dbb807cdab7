package main

import (
	"log"
	"os"

	"github.com/shuleapp/shule/core"
	"github.com/shuleapp/shule/core/distribution"
	"github.com/shuleapp/shule/core/notification"
	"github.com/shuleapp/shule/core/reminder"
	"github.com/shuleapp/shule/core/user"
	"github.com/shuleapp/shule/storage/database"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	errAndDie(database.Ping(db))

	clock := core.NewClock()
	audit := database.NewAuditLogger(db, stdLogger{logger})

	usrRepo := database.NewUserRepository(db)
	assignRepo := database.NewAssignmentRepository(db)
	notifRepo := database.NewNotificationRepository(db)

	notifSvc := notification.NewService(notifRepo, user.NewDirectory(usrRepo), nil, clock, stdLogger{logger})
	engine := distribution.NewEngine(usrRepo, assignRepo, notifSvc, audit, stdLogger{logger})
	scheduler := reminder.NewScheduler(engine, assignRepo, notifSvc, clock, stdLogger{logger}, conf.Reminder)

	// start CLI
	cli := commandLine{
		db:        db,
		usrRepo:   usrRepo,
		usrSvc:    user.NewService(usrRepo, audit, clock),
		engine:    engine,
		scheduler: scheduler,
		clock:     clock,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}

// stdLogger adapts the standard logger to core.Logger for CLI runs.
type stdLogger struct {
	std *log.Logger
}

var _ core.Logger = stdLogger{}

func (l stdLogger) print(msg string, args []interface{}) {
	l.std.Println(msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func (l stdLogger) Debug(msg string, args ...interface{}) { l.print(msg, args) }
func (l stdLogger) Info(msg string, args ...interface{})  { l.print(msg, args) }
func (l stdLogger) Warn(msg string, args ...interface{})  { l.print(msg, args) }
func (l stdLogger) Error(msg string, args ...interface{}) { l.print(msg, args) }
func (l stdLogger) Fatal(msg string, args ...interface{}) { l.print(msg, args); l.std.Fatal(msg) }
