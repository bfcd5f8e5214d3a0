package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	presenceKeyPrefix = "rtc:room:"
	presenceTimeout   = 2 * time.Second
)

// Presence mirrors room occupancy into Redis for operational visibility.
// It is strictly best-effort and never consulted for routing decisions: the
// registry remains the single source of truth, and a Redis outage only
// degrades the stats surface.
type Presence struct {
	rdb    *redis.Client
	logger *slog.Logger
}

func NewPresence(rdb *redis.Client, logger *slog.Logger) *Presence {
	return &Presence{
		rdb:    rdb,
		logger: logger.With("component", "presence"),
	}
}

func (p *Presence) PeerJoined(ctx context.Context, roomID, connID string) {
	if p == nil || p.rdb == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, presenceTimeout)
	defer cancel()

	if err := p.rdb.SAdd(ctx, presenceKeyPrefix+roomID, connID).Err(); err != nil {
		p.logger.Warn("presence update failed", "room", roomID, "error", err)
	}
}

func (p *Presence) PeerLeft(ctx context.Context, roomID, connID string) {
	if p == nil || p.rdb == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, presenceTimeout)
	defer cancel()

	key := presenceKeyPrefix + roomID
	pipe := p.rdb.TxPipeline()
	pipe.SRem(ctx, key, connID)
	card := pipe.SCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		p.logger.Warn("presence update failed", "room", roomID, "error", err)
		return
	}

	if card.Val() == 0 {
		if err := p.rdb.Del(ctx, key).Err(); err != nil {
			p.logger.Warn("presence cleanup failed", "room", roomID, "error", err)
		}
	}
}

// RoomOccupancy returns the mirrored member count per room.
func (p *Presence) RoomOccupancy(ctx context.Context) (map[string]int64, error) {
	if p == nil || p.rdb == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, presenceTimeout)
	defer cancel()

	occupancy := make(map[string]int64)
	iter := p.rdb.Scan(ctx, 0, presenceKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		count, err := p.rdb.SCard(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		occupancy[key[len(presenceKeyPrefix):]] = count
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	return occupancy, nil
}
