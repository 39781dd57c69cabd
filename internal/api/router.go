package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kitbuilder587/study-finder/docs"
	"github.com/kitbuilder587/study-finder/internal/api/handlers"
	"github.com/kitbuilder587/study-finder/internal/metrics"
)

type RouterConfig struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func SetupRouter(
	recommendHandler *handlers.RecommendHandler,
	m *metrics.Metrics,
	appLogger *zap.Logger,
	cfg RouterConfig,
) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "study-finder",
		DisableStartupMessage: true,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		ErrorHandler:          errorHandler(appLogger),
	})

	app.Use(requestid.New(requestid.Config{
		Header:    fiber.HeaderXRequestID,
		Generator: uuid.NewString,
	}))
	app.Use(requestLogger(appLogger, m))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// импорт docs регистрирует документацию через init()
	_ = docs.SwaggerInfo
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/", page("index.html"))
	app.Get("/about", page("about.html"))
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	app.Post("/recommend", recommendHandler.Recommend)

	return app
}

// errorHandler: коды fiber (404, 405) отдаём как есть, остальное - 500 без деталей
func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(handlers.ErrorResponse{Error: fe.Message})
		}

		logger.Error("unhandled error", zap.Error(err), zap.String("path", c.Path()))
		return c.Status(fiber.StatusInternalServerError).JSON(handlers.ErrorResponse{Error: "Internal server error"})
	}
}
