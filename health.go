package main

import (
	"net/http"
	"time"

	"github.com/alexliesenfeld/health"
	"github.com/cuotos/broadcastbot/database"
)

func HealthCheckHandler(db database.Database) http.Handler {
	opts := []health.CheckerOption{}

	if db != nil {
		opts = append(opts, health.WithCheck(health.Check{
			Name:    "redis",
			Timeout: 2 * time.Second,
			Check:   db.Healthy,
		}))
	}

	checker := health.NewChecker(opts...)
	return health.NewHandler(checker)
}
