package cmd

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"schema-sync/core/gate"
	"schema-sync/core/loader"
	"schema-sync/core/logger"
	"schema-sync/core/middleware/auth"
	"schema-sync/core/middleware/rayid"
	"schema-sync/feature/integrity"
	"schema-sync/feature/survey"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the schema sync server",
	Long: `Migrates the authoring tables, builds every response table once they are
ready and starts the HTTP server with all enabled features.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		// 1. Configuration, logger, database and shared cache
		rt, err := newRuntime(ctx)
		if err != nil {
			log.Fatalf("Failed to initialize: %v", err)
		}
		defer rt.close()
		logg := rt.logger
		zap.ReplaceGlobals(logg)
		rt.surveys.LogChanges()

		// 2. Build response tables once both authoring models are prepared
		dispatcher := gate.NewDispatcher(rt.db, logg)
		buildGate := rt.surveys.RegisterGate(dispatcher)
		if rt.cfg.Engine.Bootstrap {
			if err := rt.surveys.Bootstrap(ctx, dispatcher); err != nil {
				logg.Fatal("Failed to build response tables", zap.Error(err))
			}
			logg.Info("Bootstrap finished", zap.Stringer("gate", buildGate.State()))
		}

		// 3. Initialize Storage
		store, err := rt.objectStore()
		if err != nil {
			logg.Fatal("Failed to create storage client", zap.Error(err))
		}

		// 4. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
			ReadTimeout:           rt.cfg.Server.ReadTimeout(),
			BodyLimit:             rt.cfg.Server.BodyLimit(),
		})

		// 5. Initialize Feature Loader
		mgr := loader.NewManager(logg)
		mgr.Register(survey.NewFeature(rt.surveys))
		mgr.Register(integrity.NewFeature(integrity.NewService(store, rt.cfg.Storage.Bucket,
			[]string{rt.cfg.Engine.DefinitionsPrefix}, logg, rt.surveys)))

		// Middleware Registration
		// 1. RayID (Must be first to trace everything)
		app.Use(rayid.New())

		// 2. Logging Middleware (Zap + RayID)
		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		// 3. Auth (Protect API)
		if !rt.cfg.Server.IsProtected() {
			logg.Warn("No API key configured, the API is not protected")
		}
		app.Use(auth.New(auth.Config{ApiKey: rt.cfg.Server.ApiKey}))

		// 6. Load Features
		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		// 7. Start Server
		go func() {
			logg.Info("Starting server", zap.String("address", rt.cfg.Server.Address()))
			if err := app.Listen(rt.cfg.Server.Address()); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 8. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		_ = app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
