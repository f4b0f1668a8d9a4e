package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/storage/memory/v2"
	"github.com/gofiber/storage/redis/v3"
	"github.com/haulerhq/freightdesk/internal/audit"
	"github.com/haulerhq/freightdesk/internal/auth"
	"github.com/haulerhq/freightdesk/internal/bruteforce"
	"github.com/haulerhq/freightdesk/internal/common"
	"github.com/haulerhq/freightdesk/internal/config"
	"github.com/haulerhq/freightdesk/internal/handlers/api"
	"github.com/haulerhq/freightdesk/internal/idempotency"
	"github.com/haulerhq/freightdesk/internal/logistics"
	"github.com/haulerhq/freightdesk/internal/middlewares"
	"github.com/haulerhq/freightdesk/internal/middlewares/authz"
	"github.com/haulerhq/freightdesk/internal/middlewares/csrf"
	idempotencymw "github.com/haulerhq/freightdesk/internal/middlewares/idempotency"
	"github.com/haulerhq/freightdesk/internal/middlewares/ratelimit"
	"github.com/haulerhq/freightdesk/internal/middlewares/sessions"
	"github.com/haulerhq/freightdesk/internal/store"
	"github.com/haulerhq/freightdesk/internal/users"
	"github.com/haulerhq/freightdesk/model"
	"github.com/haulerhq/freightdesk/params"
	"github.com/urfave/cli/v2"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
	"gorm.io/plugin/dbresolver"
)

var (
	app       *cli.App
	gitCommit string
	gitDate   string
)

var (
	configFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "YAML config file",
		Value: "config.yaml",
	}
	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "Enable debug logging",
	}
	adminUsernameFlag = &cli.StringFlag{
		Name:     "username",
		Usage:    "Admin username",
		Required: true,
	}
	adminEmailFlag = &cli.StringFlag{
		Name:     "email",
		Usage:    "Admin email",
		Required: true,
	}
	adminNameFlag = &cli.StringFlag{
		Name:  "name",
		Usage: "Admin full name",
	}
)

func init() {
	app = cli.NewApp()
	app.EnableBashCompletion = true
	app.Usage = "freightdesk - logistics back office server"
	app.Flags = []cli.Flag{
		configFileFlag,
		debugFlag,
	}
	app.Commands = []*cli.Command{
		{
			Name: "version",
			Action: func(ctx *cli.Context) error {
				fmt.Println(params.VersionWithCommit(gitCommit, gitDate))
				return nil
			},
		},
		{
			Name:   "create-admin",
			Usage:  "Create an admin user with a generated password",
			Flags:  []cli.Flag{adminUsernameFlag, adminEmailFlag, adminNameFlag},
			Action: createAdmin,
		},
	}
	app.Action = run
}

func mustInitLogger(debug bool) {
	logLevel := slog.LevelInfo
	if debug {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))
}

func mustInitDatabase(dbConfig config.MySQLConfig) *gorm.DB {
	db, err := gorm.Open(mysql.Open(dbConfig.Dsn), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			TablePrefix:   dbConfig.TablePrefix,
			SingularTable: true,
		},
	})
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if len(dbConfig.ReplicaDsns) > 0 {
		replicas := make([]gorm.Dialector, 0, len(dbConfig.ReplicaDsns))
		for _, dsn := range dbConfig.ReplicaDsns {
			replicas = append(replicas, mysql.Open(dsn))
		}
		if err := db.Use(dbresolver.Register(dbresolver.Config{Replicas: replicas})); err != nil {
			slog.Error("Failed to register read replicas", "error", err)
			os.Exit(1)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		slog.Error("Failed to access database pool", "error", err)
		os.Exit(1)
	}
	if dbConfig.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConns)
	}
	if dbConfig.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(dbConfig.MaxOpenConns)
	}
	if dbConfig.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(time.Duration(dbConfig.ConnMaxIdleTime) * time.Second)
	}
	if dbConfig.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(dbConfig.ConnMaxLifetime) * time.Second)
	}

	if err := db.AutoMigrate(model.Models...); err != nil {
		slog.Error("Database migration failed", "error", err)
		os.Exit(1)
	}

	return db
}

func mustInitRedisStorage(redisCfg config.RedisConfig) *redis.Storage {
	return redis.New(redis.Config{
		URL:           redisCfg.URL,
		PoolSize:      redisCfg.PoolSize,
		IsClusterMode: redisCfg.ClusterMode,
	})
}

func mustInitAuditFileSink(auditCfg config.AuditConfig) *audit.FileSink {
	if auditCfg.FilePath == "" {
		return nil
	}
	sink, err := audit.NewFileSink(auditCfg.FilePath)
	if err != nil {
		slog.Error("Failed to open audit file sink", "path", auditCfg.FilePath, "error", err)
		os.Exit(1)
	}
	return sink
}

func setupAPIRoutes(
	router fiber.Router,
	cfg *config.Config,
	sessionStore *sessions.Store,
	limiterStorage fiber.Storage,
	loginLimiter *ratelimit.LoginLimiter,
	loginService *auth.LoginService,
	userService *users.UserService,
	logisticsService *logistics.Service,
	recorder *audit.Recorder,
	idempotencyCache idempotency.Cache,
) {
	// handlers
	var (
		authHandler      = api.NewAuthHandler(loginService, sessionStore)
		usersHandler     = api.NewUsersHandler(userService, recorder)
		auditHandler     = api.NewAuditHandler(recorder)
		clientsHandler   = api.NewClientsHandler(logisticsService, recorder)
		shipmentsHandler = api.NewShipmentsHandler(logisticsService, recorder)
		invoicesHandler  = api.NewInvoicesHandler(logisticsService, recorder)
		paymentsHandler  = api.NewPaymentsHandler(logisticsService, recorder)
		policiesHandler  = api.NewPoliciesHandler(logisticsService, recorder)
	)

	authzMw := authz.New(userService)
	idem := idempotencymw.New(idempotencymw.Config{
		Cache:     idempotencyCache,
		MasterKey: cfg.MasterKey,
	})

	apiGroup := router.Group("/api")
	if !cfg.RateLimit.Disabled {
		apiGroup.Use(ratelimit.New(limiterStorage))
	}
	apiGroup.Use(sessionStore.Middleware())

	if cfg.RateLimit.Disabled {
		apiGroup.Post("/login", authHandler.PostLogin)
	} else {
		apiGroup.Post("/login", loginLimiter.Middleware(), authHandler.PostLogin)
	}
	apiGroup.Post("/logout", authHandler.PostLogout)

	apiGroup.Use(csrf.New(csrf.Config{
		ExcludePaths: []string{"/api/login", "/api/logout"},
	}))
	apiGroup.Get("/me", authzMw.RequireSession(), authHandler.GetMe)

	// admin portal
	admin := apiGroup.Group("/admin", authzMw.RequireAdmin())
	admin.Get("/audit", auditHandler.GetAuditLog)
	admin.Post("/users", idem, usersHandler.PostUser)
	admin.Get("/users", usersHandler.GetUsers)
	admin.Get("/users/:id", usersHandler.GetUser)
	admin.Put("/users/:id/active", idem, usersHandler.PutUserActive)
	admin.Put("/users/:id/permissions", idem, usersHandler.PutUserPermissions)
	admin.Post("/clients", idem, clientsHandler.PostClient)
	admin.Get("/clients", clientsHandler.GetClients)
	admin.Get("/clients/:id", clientsHandler.GetClient)
	admin.Patch("/clients/:id", idem, clientsHandler.PatchClient)
	admin.Put("/clients/:id/active", idem, clientsHandler.PutClientActive)
	admin.Delete("/clients/:id", idem, clientsHandler.DeleteClient)
	admin.Post("/shipments", idem, shipmentsHandler.PostShipment)
	admin.Get("/shipments", shipmentsHandler.GetShipments)
	admin.Get("/shipments/:id", shipmentsHandler.GetShipment)
	admin.Put("/shipments/:id/status", idem, shipmentsHandler.PutShipmentStatus)
	admin.Delete("/shipments/:id", idem, shipmentsHandler.DeleteShipment)
	admin.Post("/invoices", idem, invoicesHandler.PostInvoice)
	admin.Get("/invoices", invoicesHandler.GetInvoices)
	admin.Get("/invoices/:id", invoicesHandler.GetInvoice)
	admin.Put("/invoices/:id/status", idem, invoicesHandler.PutInvoiceStatus)
	admin.Post("/payments", idem, paymentsHandler.PostPayment)
	admin.Get("/payments", paymentsHandler.GetPayments)
	admin.Get("/payments/:id", paymentsHandler.GetPayment)
	admin.Post("/policies", idem, policiesHandler.PostPolicy)
	admin.Get("/policies", policiesHandler.GetPolicies)
	admin.Get("/policies/:id", policiesHandler.GetPolicy)
	admin.Put("/policies/:id/status", idem, policiesHandler.PutPolicyStatus)

	// client portal, scoped to the principal's client
	portal := apiGroup.Group("/portal", authzMw.RequireClient())
	portal.Get("/shipments", authzMw.RequirePermission(model.PermShipmentsView), shipmentsHandler.GetShipments)
	portal.Get("/shipments/:id", authzMw.RequirePermission(model.PermShipmentsView), shipmentsHandler.GetShipment)
	portal.Post("/shipments", authzMw.RequirePermission(model.PermShipmentsCreate), idem, shipmentsHandler.PostShipment)
	portal.Get("/invoices", authzMw.RequirePermission(model.PermInvoicesView), invoicesHandler.GetInvoices)
	portal.Get("/invoices/:id", authzMw.RequirePermission(model.PermInvoicesView), invoicesHandler.GetInvoice)
	portal.Get("/payments", authzMw.RequirePermission(model.PermInvoicesView), paymentsHandler.GetPayments)
	portal.Get("/payments/:id", authzMw.RequirePermission(model.PermInvoicesView), paymentsHandler.GetPayment)
	portal.Post("/payments", authzMw.RequirePermission(model.PermPaymentsCreate), idem, paymentsHandler.PostPayment)
	portal.Get("/policies", authzMw.RequirePermission(model.PermPoliciesView), policiesHandler.GetPolicies)
	portal.Get("/policies/:id", authzMw.RequirePermission(model.PermPoliciesView), policiesHandler.GetPolicy)
}

func createAdmin(ctx *cli.Context) error {
	cfg, err := config.LoadConfig(ctx.String(configFileFlag.Name))
	if err != nil {
		slog.Error("Could not load config file.", "error", err)
		return err
	}
	mustInitLogger(cfg.Debug || ctx.Bool(debugFlag.Name))
	db := mustInitDatabase(cfg.MySQL)

	password, err := common.GenerateSecret(16)
	if err != nil {
		return err
	}
	fullName := ctx.String(adminNameFlag.Name)
	if fullName == "" {
		fullName = ctx.String(adminUsernameFlag.Name)
	}

	userService := users.NewUserService(users.NewUserRepository(db))
	user, err := userService.CreateUser(ctx.Context, users.CreateUserOptions{
		Username: ctx.String(adminUsernameFlag.Name),
		FullName: fullName,
		Email:    ctx.String(adminEmailFlag.Name),
		Password: password,
		Role:     model.RoleAdmin,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Created admin %s (id %d) with password: %s\n", user.Username, user.ID, password)
	return nil
}

func run(ctx *cli.Context) error {
	cfg, err := config.LoadConfig(ctx.String(configFileFlag.Name))
	if err != nil {
		slog.Error("Could not load config file.", "error", err)
		return err
	}

	mustInitLogger(cfg.Debug || ctx.IsSet(debugFlag.Name))

	db := mustInitDatabase(cfg.MySQL)
	redisStorage := mustInitRedisStorage(cfg.Redis)
	cacheStorage := store.NewRedisStorage(redisStorage.Conn())

	var limiterStorage fiber.Storage = redisStorage
	if cfg.RateLimit.InMemory {
		limiterStorage = memory.New()
	}

	// repositories
	var (
		userRepo  = users.NewUserRepository(db)
		auditRepo = audit.NewEntryRepository(db)
	)

	// services
	var (
		recorder         = audit.NewRecorder(auditRepo, mustInitAuditFileSink(cfg.Audit))
		userService      = users.NewUserService(userRepo)
		guard            = bruteforce.NewGuard(cacheStorage, params.LoginMaxAttempts, params.LoginLockoutWindow)
		loginService     = auth.NewLoginService(userService, guard, recorder)
		logisticsService = logistics.NewService(db)
		idempotencyCache = idempotency.NewCache(db, params.IdempotencyRecordTTL)
		loginLimiter     = ratelimit.NewLoginLimiter(params.LoginRateLimitPerMinute)
	)

	sessionStore := sessions.NewStore(sessions.Config{
		Storage:       cacheStorage,
		SessionMaxAge: cfg.Session.SessionMaxAge,
		CookieSecure:  cfg.Session.CookieSecure,
		CookieName:    cfg.Session.CookieName,
	})

	router := fiber.New(fiber.Config{
		Prefork:       false,
		CaseSensitive: true,
		BodyLimit:     params.ServerBodyLimit,
		IdleTimeout:   params.ServerIdleTimeout,
		ReadTimeout:   params.ServerReadTimeout,
		WriteTimeout:  params.ServerWriteTimeout,
		ErrorHandler:  middlewares.ErrorHandler,
	})

	router.Use(recover.New())
	router.Use(logger.New())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowOrigins, ", "),
		AllowHeaders:     "Origin, Content-Type, Accept, Idempotency-Key, X-CSRF-Token",
		AllowCredentials: true,
	}))

	setupAPIRoutes(
		router,
		cfg,
		sessionStore,
		limiterStorage,
		loginLimiter,
		loginService,
		userService,
		logisticsService,
		recorder,
		idempotencyCache,
	)

	serverCtx, term := context.WithCancel(ctx.Context)
	go idempotency.StartSweeper(serverCtx, idempotencyCache, params.IdempotencySweepPeriod)
	go loginLimiter.StartCleanupWorker(serverCtx, params.LoginLimiterCleanupPeriod)

	done := make(chan struct{})
	go common.StartHealthCheckServer(serverCtx, done, redisStorage.Conn(), db)
	defer func() {
		term()
		<-done
	}()
	return router.Listen(cfg.ListenAddr)
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
