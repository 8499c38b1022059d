// Package server serves stored archives and link artifacts over HTTP and
// exposes read-only views of the transfer ledger.
package server

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/rs/zerolog"

	"dropsort/models"
	"dropsort/token"
	"dropsort/transfer"
)

// TransferReader is the ledger view the API needs.
type TransferReader interface {
	Lookup(token string) (*models.Transfer, error)
	List(limit, offset int) ([]models.Transfer, error)
}

// Dependencies wires the HTTP server.
type Dependencies struct {
	UploadDir string
	Transfers TransferReader
	Version   string
	Logger    zerolog.Logger
}

// New builds the fiber app.
func New(deps Dependencies) *fiber.App {
	router := fiber.New(fiber.Config{
		AppName: "dropsort",
	})

	router.Use(cors.New())
	router.Use(requestLogger(deps.Logger))

	router.Get("/health", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":    "healthy",
			"service":   "dropsort",
			"version":   deps.Version,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	router.Get("/download/:name", func(c fiber.Ctx) error {
		path, ok := resolve(deps.UploadDir, c.Params("name"))
		if !ok {
			return notFound(c)
		}
		return c.Download(path, filepath.Base(path))
	})

	router.Get("/files/:name", func(c fiber.Ctx) error {
		path, ok := resolve(deps.UploadDir, c.Params("name"))
		if !ok {
			return notFound(c)
		}
		return c.SendFile(path)
	})

	api := router.Group("/api")
	api.Get("/transfers", func(c fiber.Ctx) error {
		limit, err := queryInt(c, "limit")
		if err != nil {
			return badRequest(c, "invalid limit")
		}
		offset, err := queryInt(c, "offset")
		if err != nil {
			return badRequest(c, "invalid offset")
		}

		transfers, err := deps.Transfers.List(limit, offset)
		if err != nil {
			deps.Logger.Error().Err(err).Msg("list transfers")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list transfers"})
		}
		return c.JSON(fiber.Map{"transfers": transfers})
	})

	api.Get("/transfers/:token", func(c fiber.Ctx) error {
		tok := c.Params("token")
		if !token.ValidToken(tok) {
			return badRequest(c, "invalid token")
		}

		record, err := deps.Transfers.Lookup(tok)
		switch {
		case errors.Is(err, transfer.ErrNotFound):
			return notFound(c)
		case err != nil:
			deps.Logger.Error().Err(err).Str("token", tok).Msg("lookup transfer")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load transfer"})
		}
		return c.JSON(record)
	})

	return router
}

// Serve runs app on ln until ctx is done.
func Serve(ctx context.Context, app *fiber.App, ln net.Listener) error {
	return app.Listener(ln, fiber.ListenConfig{
		GracefulContext:       ctx,
		DisableStartupMessage: true,
	})
}

// resolve maps a requested name to a regular file directly under uploadDir.
// Only the base name is honored.
func resolve(uploadDir, name string) (string, bool) {
	base := filepath.Base(filepath.FromSlash(name))
	if base == "." || base == ".." || base == string(filepath.Separator) {
		return "", false
	}

	path := filepath.Join(uploadDir, base)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return path, true
}

func queryInt(c fiber.Ctx, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.New("invalid integer")
	}
	return v, nil
}

func notFound(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
}

func badRequest(c fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func requestLogger(logger zerolog.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logger.Debug().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
		return err
	}
}
