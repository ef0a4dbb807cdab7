package main

import (
	"context"
	"fmt"

	"github.com/shuleapp/shule/storage/database"
)

func (cli *commandLine) migrate() error {
	return database.Migrate(cli.db)
}

// repair back-fills new-assignment notifications for students who missed
// their cohort fan-out.
func (cli *commandLine) repair() error {
	res, err := cli.engine.RepairMissing(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("repaired %d notification(s)\n", res.Notified)
	return nil
}

// remind runs one deadline reminder sweep, including ledger cleanup.
func (cli *commandLine) remind() error {
	return cli.scheduler.RunOnce(context.Background())
}
