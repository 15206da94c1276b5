package api

import (
	"context"
	"log"
	"time"

	"github.com/hellofresh/health-go/v5"
	"github.com/labstack/echo/v4"
	"github.com/yakoovad/team-roster/internal/repository"
)

type HealthChecker interface {
	HealthCheck() echo.HandlerFunc
}

type healthChecker struct {
	health *health.Health
}

func MustNewHealthChecker(version string, checks ...health.Config) HealthChecker {
	h, err := health.New(health.WithComponent(health.Component{Name: "team-roster", Version: version}))
	if err != nil {
		log.Fatal("failed to create health checker:", err)
	}

	for _, check := range checks {
		if err := h.Register(check); err != nil {
			log.Fatal("failed to register health check:", err)
		}
	}

	return &healthChecker{
		health: h,
	}
}

func (h *healthChecker) HealthCheck() echo.HandlerFunc {
	return echo.WrapHandler(h.health.Handler())
}

// SessionStoreCheck verifies the session store still accepts new sessions.
func SessionStoreCheck(sessions repository.SessionRepository) health.Config {
	return health.Config{
		Name:    "sessions",
		Timeout: time.Second,
		Check: func(ctx context.Context) error {
			id, err := sessions.Create(ctx)
			if err != nil {
				return err
			}
			return sessions.Delete(ctx, id)
		},
	}
}
