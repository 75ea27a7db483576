package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"incident-map/pkg/logger"
)

// LogHandler serves the category logs. Routes guard it with middleware.AdminToken.
type LogHandler struct{}

func NewLogHandler() *LogHandler {
	return &LogHandler{}
}

// GetLogs returns log entries
// @Param lines query int false "Number of lines" default(100)
// @Param level query string false "Filter by level (DEBUG, INFO, WARN, ERROR)"
// @Param category query string false "Filter by category (cluster, alert, face, report, api, ...)"
// @Param search query string false "Search in message/action"
// @Router /api/v1/admin/logs [get]
func (h *LogHandler) GetLogs(c *fiber.Ctx) error {
	opts := logger.ReadLogsOptions{
		Lines:    c.QueryInt("lines", 100),
		Level:    logger.Level(strings.ToUpper(c.Query("level"))),
		Category: logger.Category(c.Query("category")),
		Search:   c.Query("search"),
	}

	entries, err := logger.ReadLogs(opts)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"entries": entries,
			"count":   len(entries),
			"filters": fiber.Map{
				"lines":    opts.Lines,
				"level":    opts.Level,
				"category": opts.Category,
				"search":   opts.Search,
			},
		},
	})
}

// ListLogFiles lists the log files on disk
// @Router /api/v1/admin/logs/files [get]
func (h *LogHandler) ListLogFiles(c *fiber.Ctx) error {
	files, err := logger.Default().ListLogFiles()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": files})
}
