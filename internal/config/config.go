package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

const envPrefix = "ORCAUST_"

type Application struct {
	Host      string    `koanf:"host"`
	Listen    string    `koanf:"listen"`
	Database  Database  `koanf:"db"`
	Auth      Auth      `koanf:"auth"`
	Admin     Admin     `koanf:"admin"`
	Budget    Budget    `koanf:"budget"`
	RateLimit RateLimit `koanf:"ratelimit"`
}

type Database struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Pass     string `koanf:"pass"`
	Name     string `koanf:"name"`
	Schema   string `koanf:"schema"`
	MaxConns int32  `koanf:"maxconns"`
	MinConns int32  `koanf:"minconns"`
}

type Auth struct {
	// JwtSecret is the HS256 key shared with the token issuer.
	JwtSecret string `koanf:"jwtsecret"`
}

// Admin describes the administrator account created by the bootstrap step.
// Bootstrap is skipped when Username or Password is empty.
type Admin struct {
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Email    string `koanf:"email"`
}

type Budget struct {
	// RefreshOnRead persists the recalculated totals of Draft budgets on every read,
	// not only when the caller asks for it.
	RefreshOnRead bool `koanf:"refreshonread"`
}

type RateLimit struct {
	Enabled bool    `koanf:"enabled"`
	Rps     float64 `koanf:"rps"`
	Burst   int     `koanf:"burst"`
}

func Defaults() Application {
	return Application{
		Host:   "http://localhost:3000",
		Listen: ":8181",
		Database: Database{
			Host:     "localhost",
			Port:     5432,
			User:     "orcaust",
			Pass:     "",
			Name:     "orcaust",
			Schema:   "orcaust",
			MaxConns: 25,
			MinConns: 5,
		},
		RateLimit: RateLimit{
			Enabled: true,
			Rps:     20,
			Burst:   40,
		},
	}
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Defaults(), "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, envPrefix)), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	return app, nil
}
