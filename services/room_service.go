package services

import (
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"sprintarena-api/geo"
	"sprintarena-api/models"
	"sprintarena-api/repositories"
)

// Fallback palette used when a joining player's requested color is already
// taken in the room. Colors must stay unique per room.
var playerColors = []string{
	"#EF4444", "#3B82F6", "#84CC16", "#A855F7",
	"#F97316", "#EC4899", "#1E293B", "#06B6D4",
}

// PlayerProfile is the display identity a client supplies on join.
type PlayerProfile struct {
	Name   string
	Color  string
	Avatar string
}

// TelemetryUpdate carries a client's self-reported race fields. Only non-nil
// fields are merged; the record as a whole is still written back in full.
type TelemetryUpdate struct {
	Lat      *float64
	Lng      *float64
	Distance *float64
	Speed    *float64
	Points   *int
}

// RoomService owns the room lifecycle: creation and discovery, membership,
// start gating and telemetry merging. Every operation is a read-modify-write
// against the room repository; there are no cross-room transactions.
type RoomService struct {
	repo  repositories.RoomRepository
	codes *CodeService
	clock clockwork.Clock
}

func NewRoomService(repo repositories.RoomRepository, codes *CodeService, clock clockwork.Clock) *RoomService {
	return &RoomService{
		repo:  repo,
		codes: codes,
		clock: clock,
	}
}

func (s *RoomService) nowMillis() int64 {
	return s.clock.Now().UnixMilli()
}

// Get returns the current room state.
func (s *RoomService) Get(roomID string) (*models.Room, error) {
	return s.repo.Get(roomID)
}

// CreateOrJoin derives the room id from the caller's location and joins it,
// creating the room with the caller as host if the cell has no room yet.
// Re-calling with a player already in the room is idempotent. The returned
// room always has a join code assigned.
func (s *RoomService) CreateOrJoin(lat, lng float64, playerID string, profile PlayerProfile) (*models.Room, error) {
	roomID := geo.DeriveRoomID(lat, lng)
	now := s.nowMillis()

	room, err := s.repo.Get(roomID)
	if err != nil {
		if !errors.Is(err, repositories.ErrRoomNotFound) {
			return nil, err
		}
		room = &models.Room{
			ID:        roomID,
			Lat:       lat,
			Lng:       lng,
			HostID:    playerID,
			IsActive:  false,
			Players:   models.PlayerList{},
			CreatedAt: now,
		}
		log.Info().Str("room_id", roomID).Str("host", playerID).Msg("creating room")
	}

	// Rooms created before host tracking get a host retroactively: the
	// first player in join order, or the caller if the room is empty.
	if room.HostID == "" {
		if len(room.Players) > 0 {
			room.HostID = room.Players[0].ID
		} else {
			room.HostID = playerID
		}
	}

	if existing := room.Players.Find(playerID); existing == nil {
		if len(room.Players) >= models.MaxPlayers {
			return nil, ErrRoomFull
		}

		room.Players = append(room.Players, models.RoomPlayer{
			ID:       playerID,
			Name:     profile.Name,
			Color:    s.uniqueColor(room, profile.Color),
			Avatar:   profile.Avatar,
			Lat:      &lat,
			Lng:      &lng,
			JoinedAt: now,
		})
	}

	if err := s.save(room); err != nil {
		return nil, err
	}

	if _, err := s.codes.AssignCode(roomID); err != nil {
		return nil, err
	}

	return s.repo.Get(roomID)
}

// Join adds the player to an explicitly named room (the code-join path).
// A player already in the room rejoins: profile fields are refreshed in
// place instead of duplicating the slot.
func (s *RoomService) Join(roomID, playerID string, profile PlayerProfile, lat, lng *float64) (*models.Room, error) {
	room, err := s.repo.Get(roomID)
	if err != nil {
		return nil, err
	}

	if existing := room.Players.Find(playerID); existing != nil {
		applyProfile(existing, profile, lat, lng)
		if err := s.save(room); err != nil {
			return nil, err
		}
		return room, nil
	}

	if room.IsActive {
		return nil, ErrRaceInProgress
	}
	if len(room.Players) >= models.MaxPlayers {
		return nil, ErrRoomFull
	}

	room.Players = append(room.Players, models.RoomPlayer{
		ID:       playerID,
		Name:     profile.Name,
		Color:    s.uniqueColor(room, profile.Color),
		Avatar:   profile.Avatar,
		Lat:      lat,
		Lng:      lng,
		JoinedAt: s.nowMillis(),
	})

	if err := s.save(room); err != nil {
		return nil, err
	}

	return room, nil
}

// UpdateProfile mutates display fields of an existing member without
// touching race telemetry.
func (s *RoomService) UpdateProfile(roomID, playerID string, profile PlayerProfile, lat, lng *float64) (*models.Room, error) {
	room, err := s.repo.Get(roomID)
	if err != nil {
		return nil, err
	}

	if player := room.Players.Find(playerID); player != nil {
		applyProfile(player, profile, lat, lng)
		if err := s.save(room); err != nil {
			return nil, err
		}
	}

	return room, nil
}

// UpdateTelemetry merges the supplied fields into the player's slot and
// stamps lastUpdate. Unknown players are ignored: the push may race with an
// eviction, and a stale push must not resurrect the slot.
func (s *RoomService) UpdateTelemetry(roomID, playerID string, upd TelemetryUpdate) (*models.Room, error) {
	room, err := s.repo.Get(roomID)
	if err != nil {
		return nil, err
	}

	if player := room.Players.Find(playerID); player != nil {
		if upd.Lat != nil {
			player.Lat = upd.Lat
		}
		if upd.Lng != nil {
			player.Lng = upd.Lng
		}
		if upd.Distance != nil {
			player.Distance = *upd.Distance
		}
		if upd.Speed != nil {
			player.Speed = *upd.Speed
		}
		if upd.Points != nil {
			player.Points = *upd.Points
		}
		player.LastUpdate = s.nowMillis()

		if err := s.save(room); err != nil {
			return nil, err
		}
	}

	return room, nil
}

// Start activates the race. Only the recorded host may start, and at least
// two players must be present. Starting an already-active room is a no-op
// returning current state, so duplicate client retries stay harmless.
func (s *RoomService) Start(roomID, playerID string, duration *int) (*models.Room, error) {
	room, err := s.repo.Get(roomID)
	if err != nil {
		return nil, err
	}

	if room.IsActive {
		return room, nil
	}

	// Lazy host re-election: if the recorded host left, the first remaining
	// player in join order inherits the start authority.
	if room.Players.Find(room.HostID) == nil && len(room.Players) > 0 {
		room.HostID = room.Players[0].ID
	}

	if playerID != room.HostID {
		return nil, ErrNotHost
	}
	if len(room.Players) < 2 {
		return nil, ErrNotEnoughPlayers
	}

	now := s.nowMillis()
	room.IsActive = true
	room.StartTime = &now
	if duration != nil {
		room.Duration = duration
	}

	if err := s.save(room); err != nil {
		return nil, err
	}

	log.Info().Str("room_id", roomID).Int("players", len(room.Players)).Msg("race started")

	return room, nil
}

// Leave removes the player unconditionally. The host is not reassigned here
// (that happens lazily at the next Start), and an in-progress race keeps
// running even if a single player remains.
func (s *RoomService) Leave(roomID, playerID string) (*models.Room, error) {
	room, err := s.repo.Get(roomID)
	if err != nil {
		return nil, err
	}

	players := make(models.PlayerList, 0, len(room.Players))
	for _, p := range room.Players {
		if p.ID != playerID {
			players = append(players, p)
		}
	}
	room.Players = players

	if err := s.save(room); err != nil {
		return nil, err
	}

	return room, nil
}

// FindNearby lists joinable rooms (setting up, not full) within radiusKm of
// the given point. No ordering is guaranteed.
func (s *RoomService) FindNearby(lat, lng, radiusKm float64) ([]models.NearbyRoom, error) {
	rooms, err := s.repo.List()
	if err != nil {
		return nil, err
	}

	nearby := make([]models.NearbyRoom, 0)
	for _, room := range rooms {
		if room.IsActive || len(room.Players) >= models.MaxPlayers {
			continue
		}

		distance := geo.HaversineKm(lat, lng, room.Lat, room.Lng)
		if distance <= radiusKm {
			nearby = append(nearby, models.NearbyRoom{
				ID:          room.ID,
				PlayerCount: len(room.Players),
				Distance:    fmt.Sprintf("%.2f", distance),
				Lat:         room.Lat,
				Lng:         room.Lng,
			})
		}
	}

	return nearby, nil
}

func (s *RoomService) save(room *models.Room) error {
	room.UpdatedAt = s.nowMillis()
	return s.repo.Set(room.ID, room)
}

// uniqueColor keeps colors unique within a room, falling back to the first
// free palette entry when the requested color is taken.
func (s *RoomService) uniqueColor(room *models.Room, requested string) string {
	taken := make(map[string]bool, len(room.Players))
	for _, p := range room.Players {
		taken[p.Color] = true
	}

	if requested != "" && !taken[requested] {
		return requested
	}

	for _, color := range playerColors {
		if !taken[color] {
			return color
		}
	}

	return requested
}

func applyProfile(player *models.RoomPlayer, profile PlayerProfile, lat, lng *float64) {
	if profile.Name != "" {
		player.Name = profile.Name
	}
	if profile.Color != "" {
		player.Color = profile.Color
	}
	if profile.Avatar != "" {
		player.Avatar = profile.Avatar
	}
	if lat != nil {
		player.Lat = lat
	}
	if lng != nil {
		player.Lng = lng
	}
}
