package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// MaxPlayers is the hard cap on room membership.
const MaxPlayers = 6

// Room is the shared race record. All timestamps are epoch milliseconds.
// Code, StartTime and Duration stay nil until assigned; nil and zero are
// distinct states and must survive a store round-trip.
type Room struct {
	ID        string     `json:"id" gorm:"primaryKey;size:191"`
	Code      *string    `json:"code" gorm:"uniqueIndex;size:6"`
	Lat       float64    `json:"lat" gorm:"not null"`
	Lng       float64    `json:"lng" gorm:"not null"`
	HostID    string     `json:"hostId" gorm:"size:191"`
	IsActive  bool       `json:"isActive" gorm:"default:false"`
	StartTime *int64     `json:"startTime"`
	Duration  *int       `json:"duration"` // seconds; nil = no auto-stop
	Players   PlayerList `json:"players" gorm:"type:json"`
	CreatedAt int64      `json:"createdAt"`
	UpdatedAt int64      `json:"updatedAt"`
}

// RoomPlayer is one member's slot inside a room. Each client writes only its
// own slot's telemetry fields; everything else is last-write-wins.
type RoomPlayer struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Color      string   `json:"color"`
	Avatar     string   `json:"avatar"`
	Lat        *float64 `json:"lat,omitempty"`
	Lng        *float64 `json:"lng,omitempty"`
	Distance   float64  `json:"distance"` // cumulative km
	Speed      float64  `json:"speed"`    // km/h
	Time       int      `json:"time"`     // seconds since race start
	Points     int      `json:"points"`
	JoinedAt   int64    `json:"joinedAt"`
	LastUpdate int64    `json:"lastUpdate,omitempty"`
}

// PlayerList stores the ordered membership (insertion order = join order)
// as a JSON column.
type PlayerList []RoomPlayer

func (pl PlayerList) Value() (driver.Value, error) {
	if pl == nil {
		pl = PlayerList{}
	}
	return json.Marshal(pl)
}

func (pl *PlayerList) Scan(value interface{}) error {
	if value == nil {
		*pl = PlayerList{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for PlayerList")
	}

	return json.Unmarshal(data, pl)
}

// Find returns the player with the given id, or nil.
func (pl PlayerList) Find(playerID string) *RoomPlayer {
	for i := range pl {
		if pl[i].ID == playerID {
			return &pl[i]
		}
	}
	return nil
}

// LastActivity is the eviction reference point: the last telemetry push,
// falling back to the join time for players that never pushed.
func (p *RoomPlayer) LastActivity() int64 {
	if p.LastUpdate > 0 {
		return p.LastUpdate
	}
	return p.JoinedAt
}

// TableName keeps the table name stable across gorm versions
func (Room) TableName() string {
	return "rooms"
}

// Request/response shapes for the room endpoints.

type CreateRoomRequest struct {
	PlayerID     string   `json:"playerId" binding:"required"`
	PlayerName   string   `json:"playerName"`
	PlayerColor  string   `json:"playerColor"`
	PlayerAvatar string   `json:"playerAvatar"`
	Lat          *float64 `json:"lat" binding:"required"`
	Lng          *float64 `json:"lng" binding:"required"`
}

type RoomActionRequest struct {
	Action       string   `json:"action" binding:"required"`
	PlayerID     string   `json:"playerId" binding:"required"`
	PlayerName   string   `json:"playerName"`
	PlayerColor  string   `json:"playerColor"`
	PlayerAvatar string   `json:"playerAvatar"`
	Lat          *float64 `json:"lat"`
	Lng          *float64 `json:"lng"`
	Distance     *float64 `json:"distance"`
	Speed        *float64 `json:"speed"`
	Points       *int     `json:"points"`
	Duration     *int     `json:"duration"`
}

type FindRoomsRequest struct {
	Lat    *float64 `json:"lat" binding:"required"`
	Lng    *float64 `json:"lng" binding:"required"`
	Radius float64  `json:"radius"`
}

// RoomView is what room endpoints return to clients.
type RoomView struct {
	ID        string     `json:"id"`
	Code      *string    `json:"code,omitempty"`
	HostID    string     `json:"hostId"`
	IsActive  bool       `json:"isActive"`
	StartTime *int64     `json:"startTime"`
	Duration  *int       `json:"duration"`
	Players   PlayerList `json:"players"`
}

// NearbyRoom is a joinable-room summary returned by the find endpoint.
type NearbyRoom struct {
	ID          string  `json:"id"`
	PlayerCount int     `json:"playerCount"`
	Distance    string  `json:"distance"` // km, 2 decimals
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
}

// CodeLookupView is the summary returned by code resolution.
type CodeLookupView struct {
	ID          string     `json:"id"`
	Code        *string    `json:"code"`
	PlayerCount int        `json:"playerCount"`
	Players     PlayerList `json:"players"`
}

func (r *Room) View() RoomView {
	return RoomView{
		ID:        r.ID,
		Code:      r.Code,
		HostID:    r.HostID,
		IsActive:  r.IsActive,
		StartTime: r.StartTime,
		Duration:  r.Duration,
		Players:   r.Players,
	}
}

func (r *Room) String() string {
	code := "<none>"
	if r.Code != nil {
		code = *r.Code
	}
	return fmt.Sprintf("room %s (code %s, %d players)", r.ID, code, len(r.Players))
}
