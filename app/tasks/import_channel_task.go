package tasks

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/lysyi3m/lens/app/feed"
	"github.com/lysyi3m/lens/app/lens"
	"github.com/lysyi3m/lens/app/metrics"
	"golang.org/x/text/cases"
)

// ImportChannelTask fetches one channel feed and upserts its entries into
// the catalog as videos owned by the channel's creator.
type ImportChannelTask struct {
	Task
	ChannelConfig *feed.Config
	httpClient    *http.Client
	parser        *feed.Parser
	filterer      *feed.Filterer
	catalog       lens.CatalogWriter
	userAgent     string
}

func NewImportChannelTask(channelConfig *feed.Config, httpClient *http.Client, parser *feed.Parser, filterer *feed.Filterer, catalog lens.CatalogWriter, userAgent string) *ImportChannelTask {
	return &ImportChannelTask{
		Task:          NewTask(TaskTypeImportChannel, channelConfig.Name),
		ChannelConfig: channelConfig,
		httpClient:    httpClient,
		parser:        parser,
		filterer:      filterer,
		catalog:       catalog,
		userAgent:     userAgent,
	}
}

func (t *ImportChannelTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.ChannelConfig.Settings.Enabled {
		slog.Debug("Channel disabled, skipping", "channel", t.ChannelName)
		return nil
	}

	data, err := t.fetchChannel(ctx, t.ChannelConfig.URL)
	if err != nil {
		return fmt.Errorf("failed to fetch channel: %w", err)
	}

	metadata, entries, err := t.parser.Run(data)
	if err != nil {
		return fmt.Errorf("failed to parse channel: %w", err)
	}

	if err := t.storeCreator(ctx, metadata); err != nil {
		return err
	}

	if maxItems := t.ChannelConfig.Settings.MaxItems; maxItems > 0 && len(entries) > maxItems {
		entries = entries[:maxItems]
	}

	filteredCount := 0
	importedCount := 0
	for _, entry := range t.filterer.Run(entries, t.ChannelConfig) {
		if entry.IsFiltered {
			filteredCount++
			slog.Debug("Entry filtered", "channel", t.ChannelName, "guid", entry.GUID, "reason", entry.FilterReason)
			continue
		}

		if err := t.catalog.UpsertVideo(ctx, t.toVideo(entry)); err != nil {
			return fmt.Errorf("failed to upsert video: %w", err)
		}
		importedCount++
	}

	metrics.ImportedVideos.WithLabelValues(t.ChannelName).Add(float64(importedCount))
	slog.Info("Task completed",
		"type", t.GetType(),
		"channel", t.ChannelName,
		"duration", t.GetDuration(),
		"total", len(entries),
		"filtered", filteredCount,
		"imported", importedCount)

	return nil
}

func (t *ImportChannelTask) fetchChannel(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(t.ChannelConfig.Settings.Timeout)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

// storeCreator fills blanks in the configured creator from the feed's own
// title and image.
func (t *ImportChannelTask) storeCreator(ctx context.Context, metadata *feed.Metadata) error {
	creator := t.ChannelConfig.Creator
	err := t.catalog.UpsertCreator(ctx, lens.Creator{
		ID:        creator.ID,
		Handle:    creator.Handle,
		Name:      cmp.Or(creator.Name, metadata.Title, creator.Handle),
		AvatarURL: cmp.Or(creator.AvatarURL, metadata.ImageURL),
	})
	if err != nil {
		return fmt.Errorf("failed to store creator: %w", err)
	}
	return nil
}

func (t *ImportChannelTask) toVideo(entry feed.Entry) lens.Video {
	return lens.Video{
		ID:           entry.VideoID,
		OwnerID:      t.ChannelConfig.Creator.ID,
		Title:        entry.Title,
		Description:  entry.Description,
		Tags:         mergeTags(t.ChannelConfig.Settings.Tags, entry.Tags),
		ThumbnailURL: entry.ThumbnailURL,
		Views:        entry.Views,
		Likes:        entry.Likes,
		CreatedAt:    entry.PublishedAt,
	}
}

// mergeTags keeps the first spelling of each case-folded tag.
func mergeTags(lists ...[]string) []string {
	folder := cases.Fold()
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, tag := range list {
			key := folder.String(tag)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, tag)
		}
	}
	return out
}
