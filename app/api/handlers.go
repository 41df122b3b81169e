package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/lens/app/feed"
	"github.com/lysyi3m/lens/app/lens"
	"github.com/lysyi3m/lens/app/tasks"
)

type HandlerOptions struct {
	Driver  string
	Version string

	// Stats and Pinger are optional; the store is probed for them when nil.
	Stats            lens.StatsReporter
	Pinger           Pinger
	InteractionRate  float64
	InteractionBurst int
}

func NewHandler(composer FeedComposer, store any, configCache *feed.ConfigCache,
	scheduler tasks.TaskSchedulerInterface, opts HandlerOptions) *Handler {
	h := &Handler{
		composer:    composer,
		stats:       opts.Stats,
		pinger:      opts.Pinger,
		configCache: configCache,
		scheduler:   scheduler,
		limiter:     newViewerLimiter(opts.InteractionRate, opts.InteractionBurst),
		driver:      opts.Driver,
		version:     opts.Version,
	}

	if h.stats == nil {
		h.stats, _ = store.(lens.StatsReporter)
	}
	if h.pinger == nil {
		h.pinger, _ = store.(Pinger)
	}

	return h
}

func (h *Handler) GetFeed(c *gin.Context) {
	kind, err := lens.ParseKind(c.Query("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	limit, err := intQuery(c, "limit")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	offset, err := intQuery(c, "offset")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	page, err := h.composer.Feed(c.Request.Context(), lens.Request{
		ViewerID:  c.Query("viewer"),
		Kind:      kind,
		Limit:     limit,
		Offset:    offset,
		Timeframe: c.Query("timeframe"),
		Category:  lens.Category(c.Query("category")),
	})
	if err != nil {
		if lens.IsInputError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.Error("Feed composition error", "viewer", c.Query("viewer"), "kind", kind, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compose feed"})
		return
	}

	if page.Unavailable {
		slog.Error("Feed unavailable", "viewer", c.Query("viewer"), "kind", kind, "error", page.Err())
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":    lens.ErrAllSourcesFailed.Error(),
			"degraded": page.DegradedSources(),
		})
		return
	}

	c.Header("X-Feed-Algorithm", page.Algorithm)
	c.Header("X-Feed-Items", strconv.Itoa(len(page.Items)))
	c.JSON(http.StatusOK, toFeedResponse(page))
}

// intQuery returns zero when the parameter is absent.
func intQuery(c *gin.Context, name string) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &lens.InputError{Field: name, Reason: "must be an integer"}
	}
	return n, nil
}

func (h *Handler) PostInteraction(c *gin.Context) {
	var req InteractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if !h.limiter.Allow(req.Viewer) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many interactions, slow down"})
		return
	}

	ev, err := h.composer.Track(c.Request.Context(), lens.Interaction{
		ViewerID:  req.Viewer,
		VideoID:   req.Video,
		DwellMs:   req.DwellMs,
		Completed: req.Completed,
		Liked:     req.Liked,
		Commented: req.Commented,
		Followed:  req.Followed,
	})
	if err != nil {
		if lens.IsInputError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.Error("Interaction tracking error", "viewer", req.Viewer, "video", req.Video, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record interaction"})
		return
	}

	slog.Debug("Interaction recorded", "id", ev.ID, "viewer", ev.ViewerID, "video", ev.VideoID)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := gin.H{
		"status":    "ok",
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.pinger.Ping(ctx); err != nil {
			slog.Error("Health check failed", "error", err)
			health["status"] = "unavailable"
			c.JSON(http.StatusServiceUnavailable, health)
			return
		}
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := gin.H{
		"driver":  h.driver,
		"version": h.version,
	}

	if h.stats != nil {
		if counts, err := h.stats.Stats(c.Request.Context()); err == nil {
			stats["creators"] = counts.Creators
			stats["videos"] = counts.Videos
			stats["watch_events"] = counts.WatchEvents
			stats["follows"] = counts.Follows
			stats["sponsored_slots"] = counts.SponsoredSlots
		} else {
			slog.Error("Database error", "operation", "stats", "error", err)
		}
	}

	if h.configCache != nil {
		stats["channels"] = h.configCache.GetConfigCount()
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APIListChannels(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	channels := make([]gin.H, 0, len(configs))
	for _, channelConfig := range configs {
		channels = append(channels, gin.H{
			"name":             channelConfig.Name,
			"url":              channelConfig.URL,
			"creator":          channelConfig.Creator.ID,
			"enabled":          channelConfig.Settings.Enabled,
			"max_items":        channelConfig.Settings.MaxItems,
			"refresh_interval": (time.Duration(channelConfig.Settings.RefreshInterval) * time.Second).String(),
			"tags":             channelConfig.Settings.Tags,
			"filters":          len(channelConfig.Filters),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"channels": channels,
		"total":    len(channels),
	})
}

func (h *Handler) APIImportChannel(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing channel name parameter"})
		return
	}

	if _, err := h.configCache.GetConfig(name); err != nil {
		slog.Error("Channel configuration not found", "channel", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Channel configuration not found"})
		return
	}

	channelConfig, err := h.configCache.LoadConfig(name)
	if err != nil {
		slog.Error("Error reloading configuration", "channel", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to reload configuration",
			"details": err.Error(),
		})
		return
	}

	if !channelConfig.Settings.Enabled {
		c.JSON(http.StatusConflict, gin.H{"error": "Channel is disabled"})
		return
	}

	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Importer is not running"})
		return
	}

	if err := h.scheduler.ImportChannel(name); err != nil {
		slog.Error("Error enqueueing import task", "channel", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue import task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Configuration reloaded and import enqueued",
		"channel": gin.H{
			"name":    name,
			"url":     channelConfig.URL,
			"creator": channelConfig.Creator.ID,
		},
	})
}
