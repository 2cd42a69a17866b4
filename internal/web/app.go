package web

import (
	"embed"
	"io/fs"
	"net/http"
	"time"

	"go-netmap/internal/models"
	"go-netmap/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html
var templateFS embed.FS

// NewApp builds the fiber application with templates, middleware and all routes.
func NewApp(s *store.Store) *fiber.App {
	views, err := fs.Sub(templateFS, "templates")
	if err != nil {
		panic(err)
	}

	// Setup template engine
	engine := html.NewFileSystem(http.FS(views), ".html")
	engine.AddFunc("statusClass", statusClass)

	app := fiber.New(fiber.Config{
		Views:                 engine,
		ErrorHandler:          errorHandler,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(requestLogger)

	SetupRoutes(app, NewHandler(s))
	return app
}

// requestLogger writes one zerolog line per request.
func requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	if err != nil {
		// Let the error handler pick the status before it is logged.
		if herr := c.App().ErrorHandler(c, err); herr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}
	log.Debug().
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", c.Response().StatusCode()).
		Dur("took", time.Since(start)).
		Msg("request")
	return nil
}

func statusClass(s models.Status) string {
	switch s {
	case models.StatusOnline:
		return "ok"
	case models.StatusWarning:
		return "warn"
	}
	return "down"
}
