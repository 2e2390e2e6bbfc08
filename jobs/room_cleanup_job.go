package jobs

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"sprintarena-api/models"
	"sprintarena-api/repositories"
)

// Eviction thresholds, all in milliseconds.
const (
	activeStaleMs  = 30_000    // player silence tolerated mid-race
	setupStaleMs   = 120_000   // player silence tolerated during setup
	emptyRoomMaxMs = 300_000   // empty rooms older than 5 minutes go away
	roomMaxAgeMs   = 3_600_000 // no room outlives an hour
)

// RoomCleanupJob periodically evicts silent players and expired rooms.
// Owned by whoever owns the store's lifecycle: started and stopped
// explicitly, never at package load.
type RoomCleanupJob struct {
	repo     repositories.RoomRepository
	clock    clockwork.Clock
	interval time.Duration
	done     chan bool
}

func NewRoomCleanupJob(repo repositories.RoomRepository, clock clockwork.Clock, interval time.Duration) *RoomCleanupJob {
	return &RoomCleanupJob{
		repo:     repo,
		clock:    clock,
		interval: interval,
		done:     make(chan bool),
	}
}

// Start begins the sweep loop. Runs one pass immediately, then on schedule.
func (j *RoomCleanupJob) Start() {
	log.Info().Dur("interval", j.interval).Msg("room cleanup job started")

	go func() {
		ticker := j.clock.NewTicker(j.interval)
		defer ticker.Stop()

		j.Sweep()

		for {
			select {
			case <-ticker.Chan():
				j.Sweep()
			case <-j.done:
				log.Info().Msg("room cleanup job stopped")
				return
			}
		}
	}()
}

// Stop stops the sweep loop.
func (j *RoomCleanupJob) Stop() {
	j.done <- true
}

// Sweep runs one eviction pass over every room. A failure on one room is
// logged and skipped; it never blocks sweeping the rest.
func (j *RoomCleanupJob) Sweep() {
	rooms, err := j.repo.List()
	if err != nil {
		log.Error().Err(err).Msg("cleanup: listing rooms failed")
		return
	}

	now := j.clock.Now().UnixMilli()

	for _, room := range rooms {
		if err := j.sweepRoom(room, now); err != nil {
			log.Error().Err(err).Str("room_id", room.ID).Msg("cleanup: skipping room")
		}
	}
}

func (j *RoomCleanupJob) sweepRoom(room *models.Room, now int64) error {
	staleMs := int64(setupStaleMs)
	if room.IsActive {
		staleMs = activeStaleMs
	}

	active := make(models.PlayerList, 0, len(room.Players))
	for _, p := range room.Players {
		if now-p.LastActivity() < staleMs {
			active = append(active, p)
		}
	}
	evicted := len(room.Players) - len(active)

	if len(active) == 0 && now-room.CreatedAt > emptyRoomMaxMs {
		return j.repo.Delete(room.ID)
	}
	if now-room.CreatedAt > roomMaxAgeMs {
		return j.repo.Delete(room.ID)
	}

	if evicted > 0 {
		log.Debug().Str("room_id", room.ID).Int("evicted", evicted).Msg("cleanup: evicted stale players")
		room.Players = active
		room.UpdatedAt = now
		return j.repo.Set(room.ID, room)
	}

	return nil
}
