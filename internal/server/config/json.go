package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
	"github.com/dmitrijs2005/authkeeper/internal/timex"
)

// JsonConfig mirrors Config for JSON files. Durations accept "1h" or
// nanoseconds. Only keys present in the file override the current values.
type JsonConfig struct {
	HTTPAddr                    *string         `json:"http_addr"`
	GRPCAddr                    *string         `json:"grpc_addr"`
	DatabaseDSN                 *string         `json:"database_dsn"`
	RedisAddr                   *string         `json:"redis_addr"`
	RedisPassword               *string         `json:"redis_password"`
	RedisDB                     *int            `json:"redis_db"`
	RevocationMinReplicas       *int            `json:"revocation_min_replicas"`
	RevocationWaitTimeout       *timex.Duration `json:"revocation_wait_timeout"`
	SecretKey                   *string         `json:"secret_key"`
	AccessTokenValidityDuration *timex.Duration `json:"access_token_validity_duration"`
	BcryptCost                  *int            `json:"bcrypt_cost"`
	Environment                 *string         `json:"environment"`
	LogLevel                    *string         `json:"log_level"`
}

// parseJson loads the file named by -c / -config, if any, into config.
// An unreadable file or invalid JSON panics: a bad config file is a
// deployment error that must stop the process.
func parseJson(config *Config) {
	path := flagx.ConfigFile()
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	setInt(&config.RedisDB, c.RedisDB)
	setInt(&config.RevocationMinReplicas, c.RevocationMinReplicas)
	if c.RevocationWaitTimeout != nil {
		config.RevocationWaitTimeout = c.RevocationWaitTimeout.Duration
	}
	setString(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	setInt(&config.BcryptCost, c.BcryptCost)
	setString(&config.Environment, c.Environment)
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
