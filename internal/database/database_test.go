package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appconfig "github.com/GTDGit/gtd_systempay/internal/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(&appconfig.DatabaseConfig{
		Host:     "db",
		Port:     "5432",
		User:     "pay",
		Password: "p@ss/word",
		Name:     "systempay",
		SSLMode:  "disable",
	})
	assert.Equal(t, "postgres://pay:p%40ss%2Fword@db:5432/systempay?sslmode=disable", dsn)
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 500*time.Millisecond, backoff(1))
	assert.Equal(t, time.Second, backoff(2))
	assert.Equal(t, 4*time.Second, backoff(4))
	assert.Equal(t, 5*time.Second, backoff(5))
}
