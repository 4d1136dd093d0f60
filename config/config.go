package config

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"

	"github.com/lukaszglowacz/sports-messenger/models"
)

// Config holds the project config values
type Config struct {
	URL          string `envconfig:"DB_URI" default:"mongodb://127.0.0.1:27017"`
	DatabaseName string `envconfig:"DB_NAME" default:"sports_messenger"`
	BaseURL      string `envconfig:"BASE_URL"`
	Port         string `envconfig:"PORT" default:"8080"`
	Timezone     string `envconfig:"TIMEZONE" default:"UTC"`
}

// New sets up all config related services
func New() *Config {

	//setup zap logger and replace default logger
	logger := zap.NewExample()
	defer logger.Sync()
	_ = zap.ReplaceGlobals(logger)

	// .env is optional; real deployments inject env vars directly
	_ = godotenv.Load()

	c := &Config{}
	if err := envconfig.Process("", c); err != nil {
		zap.S().With(err).Error("failed to process environment config")
	}
	return c
}

// Location resolves the configured reference time zone. The daily quota
// window resets at midnight in this zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		zap.S().Warnf("unknown timezone %q, falling back to UTC", c.Timezone)
		return time.UTC
	}
	return loc
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	zap.S().With(err).Error(message)
	w.WriteHeader(httpStatusCode)
	b, _ := json.Marshal(models.ErrorMessageResponse{Response: models.MessageError{Message: message, Error: err.Error()}})
	w.Write(b)
}
