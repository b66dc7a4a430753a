package core

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env       string
		Debug     bool
		TestMode  bool
		AppName   string
		SecretKey string
		WorkDir   string
		Build     string

		FrontendBaseURL  string
		DefaultFromEmail string
		SendgridAPIKey   string
		RollbarToken     string

		Server   ServerConfig
		Database DatabaseConfig
	}

	ServerConfig struct {
		Host                      string
		Port                      int
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		PasswordResetTimeoutDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}
)

func (c ServerConfig) Address() string   { return fmt.Sprintf("%s:%d", c.Host, c.Port) }
func (c DatabaseConfig) Address() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// NewConfig loads configuration from the environment; a config/.env.<env>
// file is loaded first if it exists. ENV selects DEV (default), TEST, QA or PROD.
func NewConfig() *Config {
	conf := viper.New()
	conf.SetTypeByDefaultValue(true)

	// defaults
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "TabunganKu")
	conf.SetDefault("secretKey", "x3p$q0b&tabungan(aman)untuk!semua^siswa-sd#merdeka")
	conf.SetDefault("frontendBaseURL", "http://localhost:3000")
	conf.SetDefault("defaultFromEmail", "noreply@tabunganku.com")
	conf.SetDefault("serverHost", "")
	conf.SetDefault("serverPort", 8000)
	conf.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	conf.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	conf.SetDefault("dbEngine", "postgres")
	conf.SetDefault("dbHost", "localhost")
	conf.SetDefault("dbPort", 5432)
	conf.SetDefault("dbName", "tabunganku")
	conf.SetDefault("dbUser", "tabunganku")
	conf.SetDefault("dbPassword", "")
	conf.SetDefault("dbAdminUser", "")
	conf.SetDefault("dbAdminPassword", "")
	conf.SetDefault("dbDisableTLS", true)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	conf.SetEnvPrefix(env)

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Env:              env,
		Debug:            conf.GetBool("debug"),
		TestMode:         env == "TEST",
		AppName:          conf.GetString("appName"),
		SecretKey:        conf.GetString("secretKey"),
		WorkDir:          wd,
		Build:            conf.GetString("build"),
		FrontendBaseURL:  conf.GetString("frontendBaseURL"),
		DefaultFromEmail: conf.GetString("defaultFromEmail"),
		SendgridAPIKey:   conf.GetString("sendgridApiKey"),
		RollbarToken:     conf.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:                      conf.GetString("serverHost"),
			Port:                      conf.GetInt("serverPort"),
			JWTExpirationDelta:        conf.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("jwtRefreshExpirationDelta"),
			PasswordResetTimeoutDelta: conf.GetDuration("passwordResetTimeoutDelta"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("dbEngine"),
			Host:          conf.GetString("dbHost"),
			Port:          conf.GetInt("dbPort"),
			Name:          conf.GetString("dbName"),
			User:          conf.GetString("dbUser"),
			Password:      conf.GetString("dbPassword"),
			AdminUser:     conf.GetString("dbAdminUser"),
			AdminPassword: conf.GetString("dbAdminPassword"),
			DisableTLS:    conf.GetBool("dbDisableTLS"),
		},
	}
}
