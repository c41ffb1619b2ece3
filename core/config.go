package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var Conf *Config

type (
	Config struct {
		Debug     bool
		TestMode  bool
		Env       string
		Build     string
		AppName   string
		SecretKey string
		WorkDir   string

		// AdminEmail receives back-office notifications (new registrations etc.)
		AdminEmail      string
		DefaultFromName string
		DefaultFromAddr string
		SendgridApiKey  string
		RollbarToken    string

		// AdminCredentials maps back-office identifiers (e.g. "ADMIN1") to their
		// passwords. Loaded from the environment, never embedded as constants.
		AdminCredentials map[string]string

		Server       ServerConfig
		Database     DatabaseConfig
		Registration RegistrationConfig
		Settings     SettingsConfig
	}

	ServerConfig struct {
		Host                      string
		Port                      int
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		Host          string
		Port          int
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RegistrationConfig struct {
		// InitialIndex seeds the student counter; the first issued index number
		// is InitialIndex itself.
		InitialIndex int
	}

	SettingsConfig struct {
		// RefreshInterval drives the cached site-settings poller.
		RefreshInterval time.Duration
	}
)

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.DefaultFromName, Address: c.DefaultFromAddr}
}

func (c DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func init() {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "ApiWada")
	v.SetDefault("secretKey", "h2(h!x)#*c2(#yg4h^$cegm2emy-poq5-wer)enb$+57=dz&uox")
	v.SetDefault("adminEmail", "admin@localhost")
	v.SetDefault("defaultFromName", "ApiWada Physics")
	v.SetDefault("defaultFromAddr", "noreply@localhost")
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.name", "apiwada")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("registration.initialIndex", 8374000)
	v.SetDefault("settings.refreshInterval", 5*time.Second)

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetDefault("env", env)
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd := getwd()
	v.SetDefault("workDir", wd)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	Conf = new(Config)
	if err := v.Unmarshal(Conf); err != nil {
		log.Fatalf("config.viper.Unmarshal: %v", err)
	}
	Conf.AdminCredentials = parseAdminCredentials(os.Getenv(env + "_ADMIN_CREDENTIALS"))
}

// parseAdminCredentials parses "ID1:password1,ID2:password2" pairs.
func parseAdminCredentials(raw string) map[string]string {
	creds := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			log.Printf("config: ignoring malformed admin credential entry %q", pair)
			continue
		}
		creds[parts[0]] = parts[1]
	}
	return creds
}

// getwd walks up to the directory holding go.mod.
// go-test changes the working directory to the package being tested; anchoring
// on the module root keeps asset paths stable either way.
func getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		if _, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == string(os.PathSeparator) || newDir == currDir {
			return wd
		}
		currDir = newDir
	}
}
