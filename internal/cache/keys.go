package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	ProfileKeyPrefix     = "profile:%s"
	UnreadCountKeyPrefix = "notifications:unread:%s"
)

const (
	ProfileTTL     = 5 * time.Minute
	UnreadCountTTL = 30 * time.Second
)

func ProfileKey(profileID string) string {
	return fmt.Sprintf(ProfileKeyPrefix, profileID)
}

func UnreadCountKey(recipientID string) string {
	return fmt.Sprintf(UnreadCountKeyPrefix, recipientID)
}

// generationTTL outlives any fetch an Aside call could be waiting on.
const generationTTL = 10 * time.Minute

// Invalidate drops keys and bumps their generation so in-flight Aside fills are discarded.
func Invalidate(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	pipe := client.TxPipeline()
	pipe.Del(ctx, keys...)
	for _, key := range keys {
		pipe.Incr(ctx, generationKey(key))
		pipe.Expire(ctx, generationKey(key), generationTTL)
	}
	_, _ = pipe.Exec(ctx)
}

func InvalidateProfile(ctx context.Context, profileID string) {
	Invalidate(ctx, ProfileKey(profileID))
}

func InvalidateUnreadCount(ctx context.Context, recipientID string) {
	Invalidate(ctx, UnreadCountKey(recipientID))
}
