package main

import (
	"context"

	"github.com/tabunganku/backend/core"
	"github.com/tabunganku/backend/core/profile"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	prof, err := cli.profileRepo.GetProfile(ctx, profile.GetFilter{Email: core.CleanString(email, true /* lower */)})
	if err != nil {
		return err
	}
	if err := prof.SetPassword(pwd); err != nil {
		return err
	}
	if _, err := cli.profileRepo.UpdateProfile(ctx, prof); err != nil {
		return err
	}
	return nil
}
