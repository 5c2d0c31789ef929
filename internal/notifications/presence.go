package notifications

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"vibeu/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	defaultPresenceOnlineSetKey  = "presence:online_users"
	defaultPresenceLastSeenKeyNS = "presence:last_seen:"
	defaultPresenceTTL           = 90 * time.Second
	defaultOfflineGrace          = 5 * time.Second
	defaultReaperInterval        = 60 * time.Second
)

// PresenceConfig controls Redis presence and cleanup behavior.
type PresenceConfig struct {
	OnlineSetKey       string
	LastSeenKeyPrefix  string
	LastSeenTTL        time.Duration
	OfflineGracePeriod time.Duration
	ReaperInterval     time.Duration
	// OnChange is called outside the lock on every online/offline transition.
	OnChange func(userID string, online bool)
}

// Presence tracks which users have a live session. Local session counts are
// authoritative for this instance; Redis last-seen keys extend that across
// instances. Going offline waits out a grace window so a reconnect does not flap.
type Presence struct {
	rdb *redis.Client

	mu              sync.RWMutex
	localConnCounts map[string]int
	offlineTimers   map[string]*time.Timer

	onlineSetKey      string
	lastSeenKeyPrefix string
	lastSeenTTL       time.Duration
	offlineGrace      time.Duration
	reaperInterval    time.Duration

	onChange func(userID string, online bool)

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewPresence creates a tracker and starts a Redis reaper when Redis is available.
func NewPresence(rdb *redis.Client, cfg PresenceConfig) *Presence {
	p := &Presence{
		rdb:               rdb,
		localConnCounts:   make(map[string]int),
		offlineTimers:     make(map[string]*time.Timer),
		onlineSetKey:      defaultPresenceOnlineSetKey,
		lastSeenKeyPrefix: defaultPresenceLastSeenKeyNS,
		lastSeenTTL:       defaultPresenceTTL,
		offlineGrace:      defaultOfflineGrace,
		reaperInterval:    defaultReaperInterval,
		onChange:          cfg.OnChange,
		stopCh:            make(chan struct{}),
	}
	if cfg.OnlineSetKey != "" {
		p.onlineSetKey = cfg.OnlineSetKey
	}
	if cfg.LastSeenKeyPrefix != "" {
		p.lastSeenKeyPrefix = cfg.LastSeenKeyPrefix
	}
	if cfg.LastSeenTTL > 0 {
		p.lastSeenTTL = cfg.LastSeenTTL
	}
	if cfg.OfflineGracePeriod > 0 {
		p.offlineGrace = cfg.OfflineGracePeriod
	}
	if cfg.ReaperInterval > 0 {
		p.reaperInterval = cfg.ReaperInterval
	}

	if p.rdb != nil {
		go p.reaperLoop()
	}
	return p
}

// Stop halts the reaper and pending offline timers.
func (p *Presence) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
		p.mu.Lock()
		for userID, timer := range p.offlineTimers {
			timer.Stop()
			delete(p.offlineTimers, userID)
		}
		p.mu.Unlock()
	})
}

// SetOnChange replaces the transition callback. The server installs it once
// the notifier that fans presence out exists.
func (p *Presence) SetOnChange(fn func(userID string, online bool)) {
	p.mu.Lock()
	p.onChange = fn
	p.mu.Unlock()
}

// Register records a new local session for userID.
func (p *Presence) Register(ctx context.Context, userID string) {
	wasOnline := p.IsOnline(ctx, userID)

	p.mu.Lock()
	if t, ok := p.offlineTimers[userID]; ok {
		t.Stop()
		delete(p.offlineTimers, userID)
	}
	p.localConnCounts[userID]++
	p.mu.Unlock()

	p.Touch(ctx, userID)
	if !wasOnline {
		p.emit(userID, true)
	}
}

// Touch refreshes the cross-instance last-seen marker.
func (p *Presence) Touch(ctx context.Context, userID string) {
	if p.rdb == nil {
		return
	}
	pipe := p.rdb.TxPipeline()
	pipe.SAdd(ctx, p.onlineSetKey, userID)
	pipe.SetEx(ctx, p.lastSeenKey(userID), strconv.FormatInt(time.Now().Unix(), 10), p.lastSeenTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "presence touch failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}

// Unregister drops one local session; the last one starts the offline grace timer.
func (p *Presence) Unregister(_ context.Context, userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n, ok := p.localConnCounts[userID]; ok {
		n--
		if n > 0 {
			p.localConnCounts[userID] = n
			return
		}
		delete(p.localConnCounts, userID)
	}
	if t, ok := p.offlineTimers[userID]; ok {
		t.Stop()
	}
	p.offlineTimers[userID] = time.AfterFunc(p.offlineGrace, func() {
		p.finalizeOffline(context.Background(), userID)
	})
}

// IsOnline reports a live local session or a fresh last-seen marker from any instance.
func (p *Presence) IsOnline(ctx context.Context, userID string) bool {
	p.mu.RLock()
	local := p.localConnCounts[userID] > 0
	p.mu.RUnlock()
	if local {
		return true
	}
	if p.rdb == nil {
		return false
	}
	exists, err := p.rdb.Exists(ctx, p.lastSeenKey(userID)).Result()
	return err == nil && exists > 0
}

// OnlineUserIDs returns users online on any instance, with stale Redis members pruned.
func (p *Presence) OnlineUserIDs(ctx context.Context) []string {
	local := p.localUserIDs()
	if p.rdb == nil {
		return local
	}
	members, err := p.rdb.SMembers(ctx, p.onlineSetKey).Result()
	if err != nil {
		return local
	}

	seen := make(map[string]struct{}, len(members)+len(local))
	result := make([]string, 0, len(members)+len(local))
	for _, userID := range members {
		exists, err := p.rdb.Exists(ctx, p.lastSeenKey(userID)).Result()
		if err != nil {
			continue
		}
		if exists == 0 {
			_ = p.rdb.SRem(ctx, p.onlineSetKey, userID).Err()
			continue
		}
		seen[userID] = struct{}{}
		result = append(result, userID)
	}
	for _, userID := range local {
		if _, ok := seen[userID]; !ok {
			result = append(result, userID)
		}
	}
	return result
}

// reapOnce removes set members whose last-seen key expired and reports them offline.
func (p *Presence) reapOnce(ctx context.Context) {
	if p.rdb == nil {
		return
	}
	members, err := p.rdb.SMembers(ctx, p.onlineSetKey).Result()
	if err != nil {
		return
	}
	for _, userID := range members {
		exists, err := p.rdb.Exists(ctx, p.lastSeenKey(userID)).Result()
		if err != nil || exists > 0 {
			continue
		}
		// Only the instance whose SREM removed the member announces it.
		removed, err := p.rdb.SRem(ctx, p.onlineSetKey, userID).Result()
		if err != nil || removed == 0 {
			continue
		}

		p.mu.RLock()
		hasLocal := p.localConnCounts[userID] > 0
		p.mu.RUnlock()
		if !hasLocal {
			p.emit(userID, false)
		}
	}
}

func (p *Presence) reaperLoop() {
	ticker := time.NewTicker(p.reaperInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.reapOnce(context.Background())
		}
	}
}

func (p *Presence) finalizeOffline(ctx context.Context, userID string) {
	p.mu.Lock()
	delete(p.offlineTimers, userID)
	if p.localConnCounts[userID] > 0 {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	if p.rdb != nil {
		exists, err := p.rdb.Exists(ctx, p.lastSeenKey(userID)).Result()
		if err == nil && exists > 0 {
			// Still fresh, possibly from another instance; the reaper settles it after the TTL.
			return
		}
		removed, err := p.rdb.SRem(ctx, p.onlineSetKey, userID).Result()
		if err == nil && removed == 0 {
			// Another instance's reaper already announced it.
			return
		}
	}
	p.emit(userID, false)
}

func (p *Presence) emit(userID string, online bool) {
	p.mu.RLock()
	cb := p.onChange
	p.mu.RUnlock()
	if cb != nil {
		cb(userID, online)
	}
}

func (p *Presence) localUserIDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]string, 0, len(p.localConnCounts))
	for userID, count := range p.localConnCounts {
		if count > 0 {
			ids = append(ids, userID)
		}
	}
	return ids
}

func (p *Presence) lastSeenKey(userID string) string {
	return p.lastSeenKeyPrefix + userID
}
