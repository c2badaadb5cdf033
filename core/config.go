package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	// Config holds all app settings. It is populated once at startup from
	// defaults, an optional .env file and environment variables.
	Config struct {
		Debug    bool
		TestMode bool
		Env      string // DEV (default), TEST, QA, PROD
		Build    string

		AppName          string
		SecretKey        string
		AdminUsername    string
		AdminPassword    string
		DefaultFromEmail mail.Address
		SendgridApiKey   string
		RollbarToken     string

		// MonthlyFee is the tuition fee per month, in EGP.
		MonthlyFee int
		// MaxLessonsPerCycle caps attendance lesson numbering (1..N).
		MaxLessonsPerCycle int

		Server   ServerConfig
		Database DatabaseConfig
		Sync     SyncConfig
	}

	ServerConfig struct {
		Host               string
		Address            string
		JWTExpirationDelta time.Duration
		ShutdownTimeout    time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          string
		DisableTLS    bool
	}

	SyncConfig struct {
		// DataDir is where per-collection JSON files and pending
		// mutation queues live on the device.
		DataDir      string
		PollInterval time.Duration
		PingInterval time.Duration
	}
)

func (c DatabaseConfig) Address() string {
	return c.Host + ":" + c.Port
}

var Conf *Config

func init() {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Physica")
	v.SetDefault("secretKey", "h2(x!x)#*c2(#yg4h^$cegm2emy-poq5-wer)enb$+57=dz&uo")
	v.SetDefault("adminUsername", "admin")
	v.SetDefault("adminPassword", "")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("monthlyFee", 100)
	v.SetDefault("maxLessonsPerCycle", 8)

	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddress", ":8000")
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("shutdownTimeout", 5*time.Second)

	v.SetDefault("databaseEngine", "postgres")
	v.SetDefault("databaseName", "physica")
	v.SetDefault("databaseUser", "postgres")
	v.SetDefault("databasePassword", "")
	v.SetDefault("databaseAdminUser", "")
	v.SetDefault("databaseAdminPassword", "")
	v.SetDefault("databaseHost", "localhost")
	v.SetDefault("databasePort", "5432")
	v.SetDefault("databaseDisableTLS", true)

	v.SetDefault("syncDataDir", filepath.Join(os.TempDir(), "physica"))
	v.SetDefault("syncPollInterval", 3*time.Second)
	v.SetDefault("syncPingInterval", 5*time.Second)

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	var testMode bool
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		testMode = true
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	Conf = &Config{
		Debug:              v.GetBool("debug"),
		TestMode:           testMode,
		Env:                env,
		Build:              v.GetString("build"),
		AppName:            v.GetString("appName"),
		SecretKey:          v.GetString("secretKey"),
		AdminUsername:      v.GetString("adminUsername"),
		AdminPassword:      v.GetString("adminPassword"),
		DefaultFromEmail:   mail.Address{Name: v.GetString("appName"), Address: v.GetString("defaultFromEmail")},
		SendgridApiKey:     v.GetString("sendgridApiKey"),
		RollbarToken:       v.GetString("rollbarToken"),
		MonthlyFee:         v.GetInt("monthlyFee"),
		MaxLessonsPerCycle: v.GetInt("maxLessonsPerCycle"),
		Server: ServerConfig{
			Host:               v.GetString("serverHost"),
			Address:            v.GetString("serverAddress"),
			JWTExpirationDelta: v.GetDuration("jwtExpirationDelta"),
			ShutdownTimeout:    v.GetDuration("shutdownTimeout"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("databaseEngine"),
			Name:          v.GetString("databaseName"),
			User:          v.GetString("databaseUser"),
			Password:      v.GetString("databasePassword"),
			AdminUser:     v.GetString("databaseAdminUser"),
			AdminPassword: v.GetString("databaseAdminPassword"),
			Host:          v.GetString("databaseHost"),
			Port:          v.GetString("databasePort"),
			DisableTLS:    v.GetBool("databaseDisableTLS"),
		},
		Sync: SyncConfig{
			DataDir:      v.GetString("syncDataDir"),
			PollInterval: v.GetDuration("syncPollInterval"),
			PingInterval: v.GetDuration("syncPingInterval"),
		},
	}
}
