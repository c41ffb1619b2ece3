package main

import (
	"context"
)

func (cli *commandLine) resetPassword(indexNumber, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrRepo.GetUserByIndex(ctx, indexNumber)
	if err != nil {
		return err
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	if _, err := cli.usrRepo.UpdateUser(ctx, usr); err != nil {
		return err
	}
	return nil
}
