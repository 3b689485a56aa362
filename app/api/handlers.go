package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/rss-curator/app/database"
	"github.com/lysyi3m/rss-curator/app/feed"
	"github.com/lysyi3m/rss-curator/app/tasks"
)

const (
	defaultItemLimit = 50
	maxItemLimit     = 500
)

func NewHandler(sources SourceCatalog, feedRepo database.FeedRepository, itemRepo database.ItemRepository,
	scheduler tasks.TaskSchedulerInterface, reload ReloadFunc, channel feed.Channel) *Handler {
	return &Handler{
		feedRepo:  feedRepo,
		itemRepo:  itemRepo,
		generator: feed.NewGenerator(),
		sources:   sources,
		scheduler: scheduler,
		reload:    reload,
		channel:   channel,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	ctx := c.Request.Context()

	health := map[string]interface{}{
		"timestamp":      time.Now().In(time.Local).Format(time.RFC3339),
		"version":        h.channel.Version,
		"loaded_sources": h.sources.GetSourceCount(),
		"scheduler":      h.scheduler.Status().Running,
	}

	if feedCount, err := h.feedRepo.GetFeedCount(ctx); err == nil {
		health["feeds"] = feedCount
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	feeds, err := h.feedRepo.GetFeeds(ctx)
	if err != nil {
		slog.Error("Database error", "operation", "get_feeds", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	sources := make([]map[string]interface{}, 0, len(feeds))
	for _, f := range feeds {
		sources = append(sources, h.feedInfo(c, f))
	}

	total, err := h.itemRepo.GetItemCount(ctx, "")
	if err != nil {
		slog.Error("Database error", "operation", "get_item_count", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"scheduler":   h.scheduler.Status(),
		"sources":     sources,
		"total_items": total,
	})
}

func (h *Handler) GetItems(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	source := c.Query("source")

	items, err := h.itemRepo.GetRecentItems(c.Request.Context(), source, limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_items", "source", source, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	response := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		response = append(response, ItemResponse{
			Title:       item.Title,
			Link:        item.Link,
			PublishTime: item.PublishedAt.In(time.Local).Format(time.DateOnly),
			Summary:     item.Summary,
			Tags:        item.Tags,
			Source:      item.Source,
			ImageURL:    item.ImageURL,
			HTMLNoise:   item.HTMLNoise,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"items": response,
		"total": len(response),
	})
}

func (h *Handler) GetFeed(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	source := c.Query("source")

	items, err := h.itemRepo.GetRecentItems(c.Request.Context(), source, limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_items", "source", source, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	rss, err := h.generator.Run(h.channel, items)
	if err != nil {
		slog.Error("RSS generation error", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(items)))
	c.String(http.StatusOK, rss)
}

func (h *Handler) APIListSources(c *gin.Context) {
	ctx := c.Request.Context()
	configured := h.sources.GetSources()

	sources := make([]map[string]interface{}, 0, len(configured))
	for _, source := range configured {
		info := map[string]interface{}{
			"name":           source.Name,
			"url":            source.URL,
			"enabled":        source.Enabled(),
			"timeout":        (time.Duration(source.Settings.Timeout) * time.Second).String(),
			"image_strategy": source.Image.Strategy,
		}

		if record, err := h.feedRepo.GetFeed(ctx, source.Name); err == nil && record != nil {
			info["last_polled_at"] = record.LastPolledAt
			info["last_status"] = record.LastStatus
			info["last_error"] = record.LastError
		}

		if itemCount, err := h.itemRepo.GetItemCount(ctx, source.Name); err == nil {
			info["item_count"] = itemCount
		}

		sources = append(sources, info)
	}

	c.JSON(http.StatusOK, gin.H{
		"sources": sources,
		"total":   len(sources),
	})
}

func (h *Handler) APIReloadSources(c *gin.Context) {
	if err := h.reload(); err != nil {
		slog.Error("Error reloading sources", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to reload sources",
			"details": err.Error(),
		})
		return
	}

	h.scheduler.SyncSources()

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Sources reloaded, changes apply from the next cycle",
		"sources": h.sources.GetSourceCount(),
	})
}

func (h *Handler) feedInfo(c *gin.Context, f database.Feed) map[string]interface{} {
	info := map[string]interface{}{
		"name":           f.Name,
		"url":            f.URL,
		"last_polled_at": f.LastPolledAt,
		"last_status":    f.LastStatus,
		"last_error":     f.LastError,
		"last_fetched":   f.LastFetched,
		"last_new":       f.LastNew,
		"last_stored":    f.LastStored,
	}

	if itemCount, err := h.itemRepo.GetItemCount(c.Request.Context(), f.Name); err == nil {
		info["item_count"] = itemCount
	}

	return info
}

func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultItemLimit, true
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return 0, false
	}
	return min(limit, maxItemLimit), true
}
