package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_DSN(t *testing.T) {
	cfg := &Config{
		Host:     "db.local",
		Port:     5433,
		User:     "energy",
		Password: "secret",
		Database: "energy",
		SSLMode:  "disable",
	}

	assert.Equal(t, "host=db.local port=5433 user=energy password=secret dbname=energy sslmode=disable", cfg.DSN())
}

func TestConfig_DriverName(t *testing.T) {
	assert.Equal(t, DriverPQ, (&Config{}).DriverName())
	assert.Equal(t, DriverPGX, (&Config{Driver: DriverPGX}).DriverName())
}
