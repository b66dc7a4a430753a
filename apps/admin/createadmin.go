package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/tabunganku/backend/core"
	"github.com/tabunganku/backend/core/profile"
)

// createAdmin creates the admin account, or refreshes its email and
// password if one already exists. There is only ever one admin.
func (cli *commandLine) createAdmin(email, fullName, pwd string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	prof, err := cli.profileRepo.GetAdminProfile(ctx)
	if err != nil {
		if errors.Cause(err) != profile.ErrNotFound {
			return err
		}
		firstName, lastName := profile.SplitFullName(fullName)
		prof = profile.Profile{
			Email:     email,
			FirstName: firstName,
			LastName:  lastName,
			Role:      profile.RoleAdmin,
		}
		prof.SetActive(true)
		if err := prof.SetPassword(pwd); err != nil {
			return err
		}
		_, err = cli.profileRepo.CreateProfile(ctx, prof)
		return err
	}

	prof.Email = email
	prof.FirstName, prof.LastName = profile.SplitFullName(fullName)
	prof.SetActive(true)
	if err := prof.SetPassword(pwd); err != nil {
		return err
	}
	_, err = cli.profileRepo.UpdateProfile(ctx, prof)
	return err
}
