package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "config/config.yml"

type AppConfig struct {
	Port    int    `yaml:"port" envconfig:"PORT"`
	Env     string `yaml:"env" envconfig:"APP_ENV"`
	GinMode string `yaml:"gin_mode" envconfig:"GIN_MODE"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn" envconfig:"DATABASE_DSN"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
}

type JWTConfig struct {
	Secret           string `yaml:"secret" envconfig:"JWT_SECRET"`
	RefreshSecret    string `yaml:"refresh_secret" envconfig:"JWT_REFRESH_SECRET"`
	Issuer           string `yaml:"issuer" envconfig:"JWT_ISSUER"`
	ExpiresIn        string `yaml:"expires_in" envconfig:"JWT_EXPIRES_IN"`
	RefreshExpiresIn string `yaml:"refresh_expires_in" envconfig:"JWT_REFRESH_EXPIRES_IN"`
}

type PasswordConfig struct {
	BcryptCost int `yaml:"bcrypt_cost" envconfig:"BCRYPT_COST"`
}

type FirebaseConfig struct {
	ProjectID string `yaml:"project_id" envconfig:"FIREBASE_PROJECT_ID"`
}

type GoogleConfig struct {
	ClientID string `yaml:"client_id" envconfig:"GOOGLE_CLIENT_ID"`
}

type TwilioConfig struct {
	AccountSID string `yaml:"account_sid" envconfig:"TWILIO_ACCOUNT_SID"`
	AuthToken  string `yaml:"auth_token" envconfig:"TWILIO_AUTH_TOKEN"`
	FromNumber string `yaml:"from_number" envconfig:"TWILIO_FROM_NUMBER"`
}

type AMQPConfig struct {
	URL      string `yaml:"url" envconfig:"AMQP_URL"`
	Exchange string `yaml:"exchange" envconfig:"AMQP_EXCHANGE"`
}

type UsersConfig struct {
	DefaultTimezone string `yaml:"default_timezone" envconfig:"DEFAULT_TIMEZONE"`
}

type ConfigFile struct {
	App      AppConfig      `yaml:"app"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	JWT      JWTConfig      `yaml:"jwt"`
	Password PasswordConfig `yaml:"password"`
	Firebase FirebaseConfig `yaml:"firebase"`
	Google   GoogleConfig   `yaml:"google"`
	Twilio   TwilioConfig   `yaml:"twilio"`
	AMQP     AMQPConfig     `yaml:"amqp"`
	Users    UsersConfig    `yaml:"users"`
}

type Config struct {
	Port              string
	Env               string
	GinMode           string
	DSN               string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	JWTSecret         string
	JWTRefreshSecret  string
	JWTIssuer         string
	AccessTTL         time.Duration
	RefreshTTL        time.Duration
	BcryptCost        int
	FirebaseProjectID string
	GoogleClientID    string
	TwilioSID         string
	TwilioToken       string
	TwilioFrom        string
	AMQPURL           string
	AMQPExchange      string
	DefaultTimezone   string
}

// IsDevelopment reports whether the service runs with development logging.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func defaults() ConfigFile {
	return ConfigFile{
		App:      AppConfig{Port: 3001, Env: "production", GinMode: "release"},
		Redis:    RedisConfig{Addr: "localhost:6379"},
		JWT:      JWTConfig{Issuer: "cocare-auth", ExpiresIn: "15m", RefreshExpiresIn: "7d"},
		Password: PasswordConfig{BcryptCost: 12},
		AMQP:     AMQPConfig{Exchange: "auth.events"},
		Users:    UsersConfig{DefaultTimezone: "Asia/Kolkata"},
	}
}

// Load reads the YAML file named by CONFIG_PATH (a missing file is allowed),
// overlays environment variables and validates the result.
func Load() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultConfigPath
	}
	return LoadFrom(path)
}

func LoadFrom(path string) (*Config, error) {
	configFile := defaults()
	if err := loadConfigFile(path, &configFile); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := envconfig.Process("", &configFile); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	accTTL, err := ParseTTL(configFile.JWT.ExpiresIn)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT access TTL: %w", err)
	}

	refTTL, err := ParseTTL(configFile.JWT.RefreshExpiresIn)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT refresh TTL: %w", err)
	}

	cfg := &Config{
		Port:              strconv.Itoa(configFile.App.Port),
		Env:               configFile.App.Env,
		GinMode:           configFile.App.GinMode,
		DSN:               configFile.Database.DSN,
		RedisAddr:         configFile.Redis.Addr,
		RedisPassword:     configFile.Redis.Password,
		RedisDB:           configFile.Redis.DB,
		JWTSecret:         configFile.JWT.Secret,
		JWTRefreshSecret:  configFile.JWT.RefreshSecret,
		JWTIssuer:         configFile.JWT.Issuer,
		AccessTTL:         accTTL,
		RefreshTTL:        refTTL,
		BcryptCost:        configFile.Password.BcryptCost,
		FirebaseProjectID: configFile.Firebase.ProjectID,
		GoogleClientID:    configFile.Google.ClientID,
		TwilioSID:         configFile.Twilio.AccountSID,
		TwilioToken:       configFile.Twilio.AuthToken,
		TwilioFrom:        configFile.Twilio.FromNumber,
		AMQPURL:           configFile.AMQP.URL,
		AMQPExchange:      configFile.AMQP.Exchange,
		DefaultTimezone:   configFile.Users.DefaultTimezone,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service must not start with.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if c.JWTRefreshSecret == "" {
		errs = append(errs, errors.New("jwt.refresh_secret is required"))
	}
	if c.JWTSecret != "" && c.JWTSecret == c.JWTRefreshSecret {
		errs = append(errs, errors.New("jwt.refresh_secret must differ from jwt.secret"))
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		errs = append(errs, errors.New("token TTLs must be positive"))
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("password.bcrypt_cost must be within [%d, %d]", bcrypt.MinCost, bcrypt.MaxCost))
	}
	return errors.Join(errs...)
}

// ParseTTL parses a Go duration, additionally accepting a whole-day suffix such as "7d".
func ParseTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid day duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

func loadConfigFile(path string, config *ConfigFile) error {
	bytes, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("could not read config file at %s: %w", path, err)
	}

	if err := yaml.Unmarshal(bytes, config); err != nil {
		return fmt.Errorf("could not parse config yaml: %w", err)
	}
	return nil
}
