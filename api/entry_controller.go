package api

import (
	"log/slog"
	"net/http"

	"chili-cookoff-backend/service"

	"github.com/gin-gonic/gin"
)

// EntryController serves the public entry endpoints.
type EntryController struct {
	entries *service.EntryService
	log     *slog.Logger
}

func NewEntryController(entries *service.EntryService, log *slog.Logger) *EntryController {
	return &EntryController{entries: entries, log: log}
}

func (c *EntryController) RegisterRoutes(api *gin.RouterGroup) {
	entries := api.Group("/entries")
	{
		entries.GET("", c.ListEntries)
		entries.GET("/:id", c.GetEntry)
	}
}

// ListEntries
// @Summary List entries
// @Description Entries ordered by average rating, vote count and name
// @Tags entries
// @Produce json
// @Success 200 {array} models.Entry
// @Failure 500 {object} ErrorResponse
// @Router /api/entries [get]
func (c *EntryController) ListEntries(ctx *gin.Context) {
	entries, err := c.entries.Leaderboard(ctx.Request.Context())
	if err != nil {
		writeError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, entries)
}

// GetEntry
// @Summary Get one entry
// @Tags entries
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} models.Entry
// @Failure 404 {object} ErrorResponse
// @Router /api/entries/{id} [get]
func (c *EntryController) GetEntry(ctx *gin.Context) {
	entry, err := c.entries.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		writeError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, entry)
}
