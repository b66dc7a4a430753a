package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/tabunganku/backend/core/profile"
	inmemdb "github.com/tabunganku/backend/storage/database/inmem"
)

var profileRepo profile.Repository

func setup(t *testing.T) *commandLine {
	t.Helper()

	profileRepo = inmemdb.NewProfileRepository(inmemdb.Open())

	// the db handle is only touched by goose, which is mocked in these tests
	return &commandLine{
		profileRepo: profileRepo,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "schedules", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_createAdmin(t *testing.T) {
	cli := setup(t)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"createadmin"}, wantErr: errHelp},
		{name: "email but no name", args: []string{"createadmin", "-email", "kepala@sekolah.sch.id"}, wantErr: errHelp},
		{name: "email and name but no password", args: []string{"createadmin", "-email", "kepala@sekolah.sch.id", "-name", "Ibu Kepala"}, wantErr: errHelp},
		{name: "creates admin", args: []string{"createadmin", "-email", "kepala@sekolah.sch.id", "-name", "Ibu Kepala Sekolah"}, extra: extra{pwd: "S3cur3#Pwd"}},
		{name: "refreshes existing admin", args: []string{"createadmin", "-email", "kepala.baru@sekolah.sch.id", "-name", "Pak Kepala Baru"}, extra: extra{pwd: "An0ther#Pwd"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err != nil {
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}

			admin, err := profileRepo.GetAdminProfile(context.Background())
			if err != nil {
				t.Fatalf("GetAdminProfile() failed, %v", err)
			}
			if admin.Role != profile.RoleAdmin {
				t.Errorf("admin.Role = %s, want %s", admin.Role, profile.RoleAdmin)
			}
			if err := admin.CheckPassword(tt.extra.(extra).pwd); err != nil {
				t.Errorf("failed to set admin password, %v", err)
			}
		})
	}

	// both runs above must have ended up on the same account
	profs, err := profileRepo.QueryProfiles(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("QueryProfiles() failed, %v", err)
	}
	if len(profs) != 1 {
		t.Errorf("expected a single admin account, got %d profiles", len(profs))
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	prof := profile.Profile{
		Email:     "guru@sekolah.sch.id",
		FirstName: "Bu",
		LastName:  "Guru",
		Role:      profile.RoleTeacher,
	}
	prof.SetActive(true)
	if err := prof.SetPassword("0ld#Pwd"); err != nil {
		t.Fatalf("SetPassword() failed, %v", err)
	}
	prof, err := profileRepo.CreateProfile(context.Background(), prof)
	if err != nil {
		t.Fatalf("CreateProfile() failed, %v", err)
	}

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@test.id"}, wantErr: errHelp},
		{name: "account not found", args: []string{"resetpassword", "-email", "lol@test.id"}, extra: extra{pwd: "lol"}, wantErr: profile.ErrNotFound},
		{name: "resets password", args: []string{"resetpassword", "-email", prof.Email}, extra: extra{pwd: "N3w#Pwd"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshed, err := profileRepo.GetProfile(context.Background(), profile.GetFilter{ID: prof.ID})
				if err != nil {
					t.Fatalf("GetProfile() failed, %v", err)
				}
				if bytes.Equal(refreshed.PasswordHash, prof.PasswordHash) {
					t.Error("failed to update password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
