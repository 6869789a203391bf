package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/taskwise/backend/internal/authz"
	"github.com/taskwise/backend/internal/config"
	"github.com/taskwise/backend/internal/handlers"
	"github.com/taskwise/backend/internal/metrics"
	"github.com/taskwise/backend/internal/middleware"
	"github.com/taskwise/backend/internal/models"
	"github.com/taskwise/backend/internal/services"
	"github.com/taskwise/backend/internal/utils"
	"github.com/taskwise/backend/pkg/logger"
	"gorm.io/gorm"
)

// app holds the initialized services and handlers needed by the router.
type app struct {
	cfg *config.Config
	db  *gorm.DB

	users     *services.UserService
	auditLogs *services.AuditLogService
	extractor *authz.Extractor
	eval      *authz.Evaluator
	metrics   *metrics.Metrics
	limiter   *middleware.RateLimiter
	retention *services.AuditRetention

	authHandler     *handlers.AuthHandler
	roleHandler     *handlers.RoleHandler
	userHandler     *handlers.UserHandler
	projectHandler  *handlers.ProjectHandler
	taskHandler     *handlers.TaskHandler
	auditLogHandler *handlers.AuditLogHandler
	healthHandler   *handlers.HealthHandler
}

// bootstrap migrates the schema, seeds the default roles and admin, and
// builds every service and handler on top of db.
func bootstrap(ctx context.Context, cfg *config.Config, db *gorm.DB) (*app, error) {
	if err := models.AutoMigrate(db); err != nil {
		return nil, err
	}

	roles := services.NewRoleService(db)
	if created, err := roles.EnsureDefaults(ctx); err != nil {
		return nil, err
	} else if created > 0 {
		logger.Info().Int("count", created).Msg("Seeded default roles")
	}

	users := services.NewUserService(db, roles)
	if cfg.Auth.IdentityCacheSize > 0 {
		users.EnableIdentityCache(cfg.Auth.IdentityCacheSize, time.Duration(cfg.Auth.IdentityCacheTTLSeconds)*time.Second)
	}
	if b := cfg.Bootstrap; b.AdminEmail != "" && b.AdminPassword != "" {
		created, err := users.EnsureAdmin(ctx, b.AdminEmail, b.AdminName, b.AdminPassword)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to create admin user")
		} else if created {
			logger.Info().Str("email", b.AdminEmail).Msg("Created admin user")
		}
	}

	projects := services.NewProjectService(db)
	members := services.NewProjectMemberService(db)
	tasks := services.NewTaskService(db)
	auditLogs := services.NewAuditLogService(db)

	m := metrics.New(prometheus.NewRegistry())
	if err := m.RegisterDB(db); err != nil {
		return nil, err
	}

	eval := authz.NewEvaluator(projects, tasks, members)
	eval.SetRecorder(m)

	a := &app{
		cfg:       cfg,
		db:        db,
		users:     users,
		auditLogs: auditLogs,
		extractor: newExtractor(&cfg.Auth),
		eval:      eval,
		metrics:   m,
		retention: services.NewAuditRetention(auditLogs, cfg.Audit.RetentionDays),

		authHandler:     handlers.NewAuthHandler(users),
		roleHandler:     handlers.NewRoleHandler(roles),
		userHandler:     handlers.NewUserHandler(users),
		projectHandler:  handlers.NewProjectHandler(projects, members, tasks),
		taskHandler:     handlers.NewTaskHandler(tasks, eval),
		auditLogHandler: handlers.NewAuditLogHandler(auditLogs),
		healthHandler:   handlers.NewHealthHandler(db),
	}
	if cfg.RateLimit.Enabled {
		a.limiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}
	return a, nil
}

// newExtractor orders the identity strategies: bearer tokens first, then the
// development headers.
func newExtractor(cfg *config.AuthConfig) *authz.Extractor {
	var strategies []authz.Strategy
	if cfg.JWT.Secret != "" {
		strategies = append(strategies, authz.TokenStrategy{
			Verifier: utils.NewTokenVerifier(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Audience),
		})
	}
	if cfg.DevHeaders {
		strategies = append(strategies, authz.HeaderStrategy{})
	}
	return authz.NewExtractor(strategies...)
}

// shutdown releases background workers and the database pool.
func (a *app) shutdown() {
	a.retention.Stop()
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if err := models.Close(a.db); err != nil {
		logger.Warn().Err(err).Msg("Failed to close database")
	}
}
