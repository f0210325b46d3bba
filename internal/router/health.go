package router

import (
	"context"

	"github.com/oksasatya/go-task-manager/config"
	"github.com/oksasatya/go-task-manager/internal/container"
	"github.com/oksasatya/go-task-manager/internal/router/modules"
	"github.com/oksasatya/go-task-manager/pkg/helpers"
)

func newCookies(cfg *config.Config) *helpers.Manager {
	return helpers.NewCookie(cfg.CookieDomain, cfg.CookieSecure, cfg.CookieSameSite)
}

func buildHealth() *modules.HealthModule {
	h := modules.NewHealthModule()

	var pg, rd modules.Check
	if pool := container.GetPGPool(); pool != nil {
		pg = pool.Ping
	}
	if rdb := container.GetRedis(); rdb != nil {
		rd = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return h.With("postgres", pg).With("redis", rd)
}
