package router

import (
	"time"

	"github.com/oksasatya/go-task-manager/config"
	"github.com/oksasatya/go-task-manager/internal/application"
	"github.com/oksasatya/go-task-manager/internal/container"
	"github.com/oksasatya/go-task-manager/internal/domain/repository"
	"github.com/oksasatya/go-task-manager/internal/infrastructure/memory"
	pginfra "github.com/oksasatya/go-task-manager/internal/infrastructure/postgres"
	"github.com/oksasatya/go-task-manager/internal/infrastructure/search"
	"github.com/oksasatya/go-task-manager/internal/infrastructure/session"
	handlers "github.com/oksasatya/go-task-manager/internal/interface/http"
	"github.com/oksasatya/go-task-manager/internal/interface/middleware"
	"github.com/oksasatya/go-task-manager/internal/router/modules"
	"github.com/oksasatya/go-task-manager/pkg/cache"
	"github.com/oksasatya/go-task-manager/pkg/mailer"
	mailtpl "github.com/oksasatya/go-task-manager/pkg/mailer/templates"
)

// AppDeps are the services shared by every HTTP module.
type AppDeps struct {
	Users *application.UserService
	OTP   *application.OTPService
	Tasks *application.TaskService
}

func buildRepositories(cfg *config.Config) (repository.UserRepository, repository.TaskRepository) {
	if pool := container.GetPGPool(); pool != nil && cfg.DBDriver != "memory" {
		return pginfra.NewUserRepository(pool), pginfra.NewTaskRepository(pool)
	}
	tasks := memory.NewTaskRepository()
	return memory.NewUserRepository(tasks), tasks
}

func buildCache(cfg *config.Config) cache.Store {
	if rdb := container.GetRedis(); rdb != nil && cfg.CacheDriver == "redis" {
		return cache.NewRedis(rdb, "tm:", cfg.CacheTTL)
	}
	return cache.NewMemory(cfg.CacheTTL)
}

func buildSessions() application.SessionStore {
	if rdb := container.GetRedis(); rdb != nil {
		return session.NewRedisStore(rdb)
	}
	return session.NewMemoryStore()
}

func buildNotifier(cfg *config.Config) application.Notifier {
	if !cfg.MailSendEnabled {
		return mailer.NewLogNotifier(container.GetLogger())
	}
	brand := mailtpl.Brand{
		CompanyName: cfg.CompanyName,
		AppName:     cfg.AppName,
		SupportURL:  cfg.SupportURL,
		FrontendURL: cfg.FrontendURL,
	}
	if pub := container.GetRabbitPub(); pub != nil {
		return mailer.NewQueueNotifier(pub, brand)
	}
	if mg := container.GetMailgun(); mg != nil {
		return mailer.NewDirectNotifier(mg, brand)
	}
	return mailer.NewLogNotifier(container.GetLogger())
}

func buildIndex(cfg *config.Config) application.TaskIndex {
	es := container.GetES()
	if es == nil {
		return nil
	}
	return search.NewTaskIndex(es, cfg.ESTasksIndex)
}

// newLimiter prefers the shared Redis window so limits hold across replicas.
func newLimiter(max int, window time.Duration) middleware.Limiter {
	if rdb := container.GetRedis(); rdb != nil {
		return middleware.NewRedisLimiter(rdb, max, window)
	}
	return middleware.NewMemoryLimiter(max, window)
}

func buildDeps() AppDeps {
	cfg := container.GetConfig()
	log := container.GetLogger()
	users, tasks := buildRepositories(cfg)
	sessions := buildSessions()

	otp := application.NewOTPService(users, buildNotifier(cfg), sessions, log)
	taskSvc := application.NewTaskService(tasks, buildCache(cfg), cfg.CacheTTL, buildIndex(cfg), log)
	userSvc := application.NewUserService(
		users,
		container.GetJWT(),
		sessions,
		cfg.SessionTTL,
		otp,
		taskSvc,
		container.GetGCS(),
		cfg.GCSBucket,
		log,
	)
	return AppDeps{Users: userSvc, OTP: otp, Tasks: taskSvc}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) AppDeps {
	cfg := container.GetConfig()
	log := container.GetLogger()
	deps := buildDeps()
	verbose := cfg.IsDevelopment()
	cookies := newCookies(cfg)

	authMW := middleware.Auth(deps.Users)
	loginLimit := middleware.RateLimit(newLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow), middleware.KeyByIP("login"), nil)
	otpLimit := middleware.RateLimit(newLimiter(cfg.OTPRateLimit, cfg.OTPRateWindow), middleware.KeyByIPAndPath(), nil)
	attemptLimit := middleware.RateLimit(newLimiter(cfg.OTPAttemptLimit, cfg.OTPAttemptWindow), middleware.KeyByIPAndPath(), nil)
	refreshLimit := middleware.RateLimit(newLimiter(60, time.Minute), middleware.KeyByIP("refresh"), nil)
	userLimit := middleware.RateLimit(newLimiter(120, time.Minute), middleware.KeyByUserID("api"), middleware.AllowPrivateIP())

	authH := handlers.NewAuthHandler(deps.Users, deps.OTP, cookies, log, verbose)
	userH := handlers.NewUserHandler(deps.Users, cookies, log, verbose)
	taskH := handlers.NewTaskHandler(deps.Tasks, log, verbose)

	r.Add(modules.NewAuthModule(authH, authMW, modules.AuthLimits{
		Login:   loginLimit,
		Issue:   otpLimit,
		Attempt: attemptLimit,
		Refresh: refreshLimit,
	}))
	r.Add(modules.NewProfileModule(userH, authMW, userLimit))
	r.Add(modules.NewTaskModule(taskH, authMW, userLimit))
	r.Add(modules.NewAdminModule(userH, taskH, authMW))
	r.Add(modules.NewDebugModule(cfg.DebugMetricsEnabled))

	r.AddRoot(buildHealth())
	return deps
}
