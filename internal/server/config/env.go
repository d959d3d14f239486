package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvConfig lists the environment variables understood by the server.
// Names follow the conventions of the deployment (.env) files.
type EnvConfig struct {
	HTTPAddr                    string        `envconfig:"HTTP_ADDR"`
	GRPCAddr                    string        `envconfig:"GRPC_ADDR"`
	DatabaseDSN                 string        `envconfig:"DATABASE_DSN"`
	RedisAddr                   string        `envconfig:"REDIS_ADDR"`
	RedisPassword               string        `envconfig:"REDIS_PASSWORD"`
	RedisDB                     int           `envconfig:"REDIS_DB"`
	RevocationMinReplicas       int           `envconfig:"REVOCATION_MIN_REPLICAS"`
	RevocationWaitTimeout       time.Duration `envconfig:"REVOCATION_WAIT_TIMEOUT"`
	SecretKey                   string        `envconfig:"JWT_SECRET"`
	AccessTokenValidityDuration time.Duration `envconfig:"ACCESS_TOKEN_TTL"`
	BcryptCost                  int           `envconfig:"BCRYPT_COST"`
	Environment                 string        `envconfig:"APP_ENV"`
	LogLevel                    string        `envconfig:"LOG_LEVEL"`
}

// parseEnv overlays variables that are set; unset ones keep the values
// already in config because envconfig leaves untouched fields alone.
func parseEnv(config *Config) {
	e := EnvConfig{
		HTTPAddr:                    config.HTTPAddr,
		GRPCAddr:                    config.GRPCAddr,
		DatabaseDSN:                 config.DatabaseDSN,
		RedisAddr:                   config.RedisAddr,
		RedisPassword:               config.RedisPassword,
		RedisDB:                     config.RedisDB,
		RevocationMinReplicas:       config.RevocationMinReplicas,
		RevocationWaitTimeout:       config.RevocationWaitTimeout,
		SecretKey:                   config.SecretKey,
		AccessTokenValidityDuration: config.AccessTokenValidityDuration,
		BcryptCost:                  config.BcryptCost,
		Environment:                 config.Environment,
		LogLevel:                    config.LogLevel,
	}

	if err := envconfig.Process("", &e); err != nil {
		panic(err)
	}

	config.HTTPAddr = e.HTTPAddr
	config.GRPCAddr = e.GRPCAddr
	config.DatabaseDSN = e.DatabaseDSN
	config.RedisAddr = e.RedisAddr
	config.RedisPassword = e.RedisPassword
	config.RedisDB = e.RedisDB
	config.RevocationMinReplicas = e.RevocationMinReplicas
	config.RevocationWaitTimeout = e.RevocationWaitTimeout
	config.SecretKey = e.SecretKey
	config.AccessTokenValidityDuration = e.AccessTokenValidityDuration
	config.BcryptCost = e.BcryptCost
	config.Environment = e.Environment
	config.LogLevel = e.LogLevel
}
