package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type HealthHandler struct {
	pgPool  *pgxpool.Pool
	redis   *redis.Client
	env     string
	version string
}

func NewHealthHandler(pgPool *pgxpool.Pool, redis *redis.Client, env, version string) *HealthHandler {
	return &HealthHandler{
		pgPool:  pgPool,
		redis:   redis,
		env:     env,
		version: version,
	}
}

type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Env     string `json:"env,omitempty"`
}

type ReadinessResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version,omitempty"`
	Env          string            `json:"env,omitempty"`
	Dependencies map[string]string `json:"dependencies"`
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	resp := LivenessResponse{
		Status:  "ok",
		Version: h.version,
		Env:     h.env,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	// Postgres holds the appointments; without it nothing works. Redis only
	// guards the agenda lock sections, so losing it degrades readiness
	// instead of failing it.
	checks := []struct {
		name string
		ping func(context.Context) error
		soft bool
	}{
		{name: "postgres", ping: h.pgPool.Ping},
		{name: "redis", ping: func(ctx context.Context) error { return h.redis.Ping(ctx).Err() }, soft: true},
	}

	deps := make(map[string]string, len(checks))
	status := "ok"
	for _, c := range checks {
		depCtx, depCancel := context.WithTimeout(ctx, 1*time.Second)
		err := c.ping(depCtx)
		depCancel()
		if err != nil {
			deps[c.name] = "down"
			if c.soft && status == "ok" {
				status = "degraded"
			} else {
				status = "error"
			}
			continue
		}
		deps[c.name] = "ok"
	}

	resp := ReadinessResponse{
		Status:       status,
		Version:      h.version,
		Env:          h.env,
		Dependencies: deps,
	}

	httpStatus := http.StatusOK
	if status == "error" {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, resp)
}
