package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/cloudvault/internal/flagx"
	"github.com/dmitrijs2005/cloudvault/internal/timex"
)

// JsonConfig is the intermediate shape for JSON config files. Interval
// fields use timex.Duration so both "15m" strings and integer
// nanoseconds parse; values are copied into the runtime Config after
// unmarshalling.
type JsonConfig struct {
	DatabaseDSN    string         `json:"database_dsn"`
	BaseURL        string         `json:"base_url"`
	LogLevel       string         `json:"log_level"`
	PresignTTL     timex.Duration `json:"presign_ttl"`
	S3RootUser     string         `json:"s3_root_user"`
	S3RootPassword string         `json:"s3_root_password"`
	S3Bucket       string         `json:"s3_bucket"`
	S3Region       string         `json:"s3_region"`
	S3BaseEndpoint string         `json:"s3_base_endpoint"`
}

// parseJson overlays values from the JSON file named by the -c/-config
// flags onto config. No flag means no file is loaded. An unreadable or
// malformed file panics: a half-applied config is worse than a crash at
// startup.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.DatabaseDSN = c.DatabaseDSN
	config.BaseURL = c.BaseURL
	config.LogLevel = c.LogLevel
	config.PresignTTL = time.Duration(c.PresignTTL.Duration)
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
}
