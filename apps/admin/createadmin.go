package main

import (
	"context"

	"github.com/shuleapp/shule/core"
	"github.com/shuleapp/shule/core/user"
)

// createAdmin updates or creates an active admin account.
func (cli *commandLine) createAdmin(uname, email, pwd string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUserByUsernameOrEmail(ctx, uname)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		usr = user.User{
			Name:      uname,
			Username:  uname,
			Email:     email,
			CreatedAt: cli.clock.Now(),
		}
	}
	usr.Role = user.RoleAdmin
	usr.IsActive = true
	usr.UpdatedAt = cli.clock.Now()
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	if usr.ID == "" {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	}
	return err
}
