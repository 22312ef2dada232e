package api

import (
	"context"
	"time"

	"chili-cookoff-backend/models"
	"chili-cookoff-backend/service"
	"chili-cookoff-backend/websocket"
)

// LiveSnapshot builds the first message a live subscriber receives: the whole
// leaderboard, or the current stats of one entry.
func LiveSnapshot(entries *service.EntryService) websocket.SnapshotFunc {
	return func(ctx context.Context, topic string, entryID string) (*models.LiveMessage, error) {
		if topic == websocket.TopicLeaderboard {
			board, err := entries.Leaderboard(ctx)
			if err != nil {
				return nil, err
			}
			return &models.LiveMessage{
				Type:      models.MessageLeaderboard,
				Payload:   board,
				Timestamp: time.Now().UTC(),
			}, nil
		}

		entry, err := entries.Get(ctx, entryID)
		if err != nil {
			return nil, err
		}
		return &models.LiveMessage{
			Type:      models.MessageEntryStats,
			EntryID:   entry.ID,
			Payload:   entry.Stats(),
			Timestamp: time.Now().UTC(),
		}, nil
	}
}
