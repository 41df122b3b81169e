package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/lens/app/feed"
	"github.com/lysyi3m/lens/app/lens"
)

// SyncCreatorTask registers the creator a channel publishes as, so feed rows
// can be hydrated before the first import finishes.
type SyncCreatorTask struct {
	Task
	ChannelConfig *feed.Config
	catalog       lens.CatalogWriter
}

func NewSyncCreatorTask(channelConfig *feed.Config, catalog lens.CatalogWriter) *SyncCreatorTask {
	return &SyncCreatorTask{
		Task:          NewTask(TaskTypeSyncCreator, channelConfig.Name),
		ChannelConfig: channelConfig,
		catalog:       catalog,
	}
}

func (t *SyncCreatorTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	creator := t.ChannelConfig.Creator
	err := t.catalog.UpsertCreator(ctx, lens.Creator{
		ID:        creator.ID,
		Handle:    creator.Handle,
		Name:      creator.Name,
		AvatarURL: creator.AvatarURL,
	})
	if err != nil {
		return fmt.Errorf("failed to sync creator for channel: %w", err)
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"channel", t.ChannelName,
		"creator", creator.ID,
		"duration", t.GetDuration())

	return nil
}
