package race

import (
	"context"
	"math"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"sprintarena-api/geo"
	"sprintarena-api/models"
	"sprintarena-api/services"
)

const (
	// Single-tick jumps beyond this are GPS glitches and contribute nothing.
	maxJumpKm = 0.1

	// Position changes below this epsilon (degrees) don't extend the trail.
	pathEpsilon = 1e-5

	// Speed above this earns the flat bonus.
	speedBonusThresholdKmh = 10

	defaultPollInterval = time.Second
	pushTimeout         = 3 * time.Second
)

// GPSFix is one position sample from the device. SpeedKmh is the
// device-reported speed when the hardware provides one.
type GPSFix struct {
	Lat      float64
	Lng      float64
	SpeedKmh *float64
}

// RoomAPI is the reconciler's view of the coordination service: fetch the
// shared room, push own telemetry, leave. Implementations must apply their
// own short timeouts and treat failures as skippable.
type RoomAPI interface {
	FetchRoom(ctx context.Context, roomID string) (*models.Room, error)
	PushTelemetry(ctx context.Context, roomID, playerID string, upd services.TelemetryUpdate) error
	Leave(ctx context.Context, roomID, playerID string) error
}

// Snapshot is a point-in-time view of the local race state.
type Snapshot struct {
	Elapsed  int
	Finished bool
	Runners  []Runner
}

type raceMsg interface{ isRaceMsg() }

type gpsFixMsg struct{ fix GPSFix }
type pollResultMsg struct{ room *models.Room }
type tickMsg struct{}
type snapshotReq struct{ reply chan Snapshot }
type stopMsg struct{}

func (gpsFixMsg) isRaceMsg()     {}
func (pollResultMsg) isRaceMsg() {}
func (tickMsg) isRaceMsg()       {}
func (snapshotReq) isRaceMsg()   {}
func (stopMsg) isRaceMsg()       {}

// Config describes one client's race session.
type Config struct {
	RoomID       string
	PlayerID     string
	StartTime    int64 // epoch ms, the shared room startTime
	Duration     *int  // seconds, nil = no auto-stop
	Runners      []Runner
	API          RoomAPI
	Clock        clockwork.Clock
	PollInterval time.Duration
	OnFinish     func([]Runner) // called once, with the final ranked list
}

// Reconciler merges the two asynchronous feeds of a racing client — the GPS
// stream and the room poll — into one consistent local runner list. All state
// lives inside a single goroutine; GPS fixes, poll results and clock ticks
// are messages on one inbox, so the two feeds can never interleave a lost
// update between them.
type Reconciler struct {
	cfg        Config
	inbox      chan raceMsg
	ctx        context.Context
	cancel     context.CancelFunc
	pollCtx    context.Context
	pollCancel context.CancelFunc

	// loop-owned state
	runners  []Runner
	elapsed  int
	finished bool
}

// NewReconciler starts the reconciliation loop and the poll loop.
func NewReconciler(parent context.Context, cfg Config) *Reconciler {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = defaultPollInterval
	}

	ctx, cancel := context.WithCancel(parent)
	pollCtx, pollCancel := context.WithCancel(ctx)

	r := &Reconciler{
		cfg:        cfg,
		inbox:      make(chan raceMsg, 64),
		ctx:        ctx,
		cancel:     cancel,
		pollCtx:    pollCtx,
		pollCancel: pollCancel,
		runners:    make([]Runner, len(cfg.Runners)),
	}
	copy(r.runners, cfg.Runners)

	go r.loop()
	go r.pollLoop()
	go r.tickLoop()

	return r
}

// OnGPSFix feeds one device position sample into the loop.
func (r *Reconciler) OnGPSFix(fix GPSFix) {
	select {
	case r.inbox <- gpsFixMsg{fix: fix}:
	case <-r.ctx.Done():
	}
}

// Snapshot returns the current local view. Safe from any goroutine.
func (r *Reconciler) Snapshot() Snapshot {
	reply := make(chan Snapshot, 1)
	select {
	case r.inbox <- snapshotReq{reply: reply}:
		select {
		case snap := <-reply:
			return snap
		case <-r.ctx.Done():
		}
	case <-r.ctx.Done():
	}
	return Snapshot{}
}

// Stop cancels polling and the GPS merge and sends a best-effort leave.
// It never blocks on the network.
func (r *Reconciler) Stop() {
	select {
	case r.inbox <- stopMsg{}:
	case <-r.ctx.Done():
	}
}

func (r *Reconciler) loop() {
	for {
		select {
		case <-r.ctx.Done():
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case gpsFixMsg:
				if !r.finished {
					r.applyFix(msg.fix)
				}

			case pollResultMsg:
				if !r.finished {
					r.mergePoll(msg.room)
				}

			case tickMsg:
				if !r.finished {
					r.tick()
				}

			case snapshotReq:
				msg.reply <- Snapshot{
					Elapsed:  r.elapsed,
					Finished: r.finished,
					Runners:  append([]Runner(nil), r.runners...),
				}

			case stopMsg:
				r.leave()
				r.cancel()
				return
			}
		}
	}
}

// applyFix advances the local player from one GPS sample and pushes the new
// telemetry to the room. Remote players are never touched here.
func (r *Reconciler) applyFix(fix GPSFix) {
	self := r.findRunner(r.cfg.PlayerID)
	if self == nil {
		return
	}

	newLocation := LatLng{Lat: fix.Lat, Lng: fix.Lng}

	delta := 0.0
	if self.Location != nil {
		delta = geo.HaversineKm(self.Location.Lat, self.Location.Lng, fix.Lat, fix.Lng)
	}
	if delta > maxJumpKm {
		delta = 0 // glitch, ignore the jump
	}

	self.Distance += delta

	switch {
	case fix.SpeedKmh != nil:
		self.Speed = *fix.SpeedKmh
	case delta > 0:
		// Extrapolate the delta as if it covered exactly one second.
		self.Speed = delta / (1.0 / 3600.0)
	default:
		self.Speed = 0
	}

	self.Points += int(math.Floor(delta * 10))
	if self.Speed > speedBonusThresholdKmh {
		self.Points += int(math.Floor(self.Speed / 10))
	}

	self.Location = &newLocation
	self.PathHistory = append(self.PathHistory, newLocation)

	r.push(*self)
}

// push sends own telemetry fire-and-forget: a failed push is logged and
// dropped, never retried. The next fix carries fresher state anyway.
func (r *Reconciler) push(self Runner) {
	upd := services.TelemetryUpdate{
		Distance: &self.Distance,
		Speed:    &self.Speed,
		Points:   &self.Points,
	}
	if self.Location != nil {
		upd.Lat = &self.Location.Lat
		upd.Lng = &self.Location.Lng
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()

		if err := r.cfg.API.PushTelemetry(ctx, r.cfg.RoomID, r.cfg.PlayerID, upd); err != nil {
			log.Warn().Err(err).Str("room_id", r.cfg.RoomID).Msg("telemetry push dropped")
		}
	}()
}

// mergePoll overwrites every remote runner from the authoritative room
// record. The local player's own fields are never overwritten: local
// GPS-derived state is fresher than the round-tripped copy.
func (r *Reconciler) mergePoll(room *models.Room) {
	merged := make([]Runner, 0, len(room.Players))

	for _, p := range room.Players {
		if p.ID == r.cfg.PlayerID {
			if self := r.findRunner(p.ID); self != nil {
				merged = append(merged, *self)
				continue
			}
		}

		runner := Runner{
			ID:       p.ID,
			Name:     p.Name,
			Color:    p.Color,
			Avatar:   p.Avatar,
			Distance: p.Distance,
			Speed:    p.Speed,
			Time:     r.elapsed,
			Points:   p.Points,
		}

		if prev := r.findRunner(p.ID); prev != nil {
			runner.Location = prev.Location
			runner.PathHistory = prev.PathHistory
		}

		if p.Lat != nil && p.Lng != nil {
			loc := LatLng{Lat: *p.Lat, Lng: *p.Lng}
			if runner.Location == nil || moved(*runner.Location, loc) {
				runner.PathHistory = append(runner.PathHistory, loc)
			}
			runner.Location = &loc
		}

		merged = append(merged, runner)
	}

	// An evicted self still races locally; keep it in the projection.
	if r.findIn(merged, r.cfg.PlayerID) == nil {
		if self := r.findRunner(r.cfg.PlayerID); self != nil {
			merged = append(merged, *self)
		}
	}

	r.runners = merged
}

// tick recomputes elapsed time from the shared start and fires auto-stop.
// Every client evaluates this independently against the same startTime, so
// agreement is eventual within one tick, not simultaneous.
func (r *Reconciler) tick() {
	now := r.cfg.Clock.Now().UnixMilli()
	r.elapsed = int((now - r.cfg.StartTime) / 1000)

	for i := range r.runners {
		r.runners[i].Time = r.elapsed
	}

	if r.cfg.Duration != nil && r.elapsed >= *r.cfg.Duration {
		r.finish()
	}
}

// finish finalizes the runner list and reports results. No further server
// round-trips happen after this point.
func (r *Reconciler) finish() {
	r.finished = true
	r.pollCancel() // results are local from here on; no more round-trips

	for i := range r.runners {
		r.runners[i].Time = r.elapsed
	}

	if r.cfg.OnFinish != nil {
		r.cfg.OnFinish(Rank(r.runners))
	}
}

// leave notifies the room on the way out, fire-and-forget so navigation is
// never blocked.
func (r *Reconciler) leave() {
	api, roomID, playerID := r.cfg.API, r.cfg.RoomID, r.cfg.PlayerID
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()

		if err := api.Leave(ctx, roomID, playerID); err != nil {
			log.Warn().Err(err).Str("room_id", roomID).Msg("leave notification dropped")
		}
	}()
}

func (r *Reconciler) pollLoop() {
	ticker := r.cfg.Clock.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.pollCtx.Done():
			return
		case <-ticker.Chan():
			ctx, cancel := context.WithTimeout(r.pollCtx, pushTimeout)
			room, err := r.cfg.API.FetchRoom(ctx, r.cfg.RoomID)
			cancel()

			if err != nil {
				// Skip this tick; the next poll tries again.
				log.Debug().Err(err).Str("room_id", r.cfg.RoomID).Msg("room poll skipped")
				continue
			}

			select {
			case r.inbox <- pollResultMsg{room: room}:
			case <-r.pollCtx.Done():
				return
			}
		}
	}
}

func (r *Reconciler) tickLoop() {
	ticker := r.cfg.Clock.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.pollCtx.Done():
			return
		case <-ticker.Chan():
			select {
			case r.inbox <- tickMsg{}:
			case <-r.pollCtx.Done():
				return
			}
		}
	}
}

func (r *Reconciler) findRunner(id string) *Runner {
	return r.findIn(r.runners, id)
}

func (r *Reconciler) findIn(runners []Runner, id string) *Runner {
	for i := range runners {
		if runners[i].ID == id {
			return &runners[i]
		}
	}
	return nil
}

func moved(a, b LatLng) bool {
	return math.Abs(a.Lat-b.Lat) > pathEpsilon || math.Abs(a.Lng-b.Lng) > pathEpsilon
}
