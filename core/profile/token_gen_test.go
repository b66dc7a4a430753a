package profile

import (
	"testing"
	"time"

	"github.com/tabunganku/backend/core"
)

func TestMakeVerifyToken(t *testing.T) {
	conf := &core.Config{
		SecretKey: "secret",
		Server:    core.ServerConfig{PasswordResetTimeoutDelta: 3 * 24 * time.Hour},
	}

	now := time.Now()
	prof := Profile{
		ID:        "4f6696f2-09c1-4b02-a26c-1b0c6c111111",
		FirstName: "Budi",
		LastName:  "Santoso",
		Email:     "budi@test.test",
		Role:      RoleTeacher,
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: now,
	}
	prof.SetActive(true)
	_ = prof.SetPassword("pwd")

	validToken, err := MakeToken(conf, prof)
	if err != nil {
		t.Fatalf("MakeToken() failed: %v", err)
	}

	// generate an expired token
	dayLate := conf.Server.PasswordResetTimeoutDelta + (24 * time.Hour)
	NowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken, err := MakeToken(conf, prof)
	if err != nil {
		t.Fatalf("MakeToken() failed: %v", err)
	}
	NowFunc = time.Now // reset

	tests := []struct {
		name    string
		prof    Profile
		token   string
		wantErr error
	}{
		{name: "no token", prof: prof, wantErr: errInvalidToken},
		{name: "invalid parts len", prof: prof, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "invalid base32", prof: prof, token: "hahaha-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid timestamp", prof: prof, token: "NRXWY-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid token", prof: prof, token: "HE4TS-sigsig-sig", wantErr: errInvalidToken},
		{name: "expired token", prof: prof, token: expiredToken, wantErr: errTokenExpired},
		{name: "valid token", prof: prof, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := verifyToken(conf, tt.prof, tt.token); err != tt.wantErr {
				t.Errorf("verifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
