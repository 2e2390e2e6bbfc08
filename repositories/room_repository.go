package repositories

import (
	"errors"
	"sync"

	"sprintarena-api/models"
)

// ErrRoomNotFound is returned by Get and FindByCode when no record exists.
var ErrRoomNotFound = errors.New("room not found")

// RoomRepository is the keyed record store for rooms. Set is a whole-record
// upsert: callers read, modify, and write the full room back. There is no
// optimistic concurrency token, so concurrent read-modify-write cycles are
// last-write-wins.
type RoomRepository interface {
	Get(roomID string) (*models.Room, error)
	Set(roomID string, room *models.Room) error
	Delete(roomID string) error
	List() ([]*models.Room, error)
	FindByCode(code string) (*models.Room, error)
}

// MemoryRoomRepository keeps rooms in an in-process map. Records are copied
// on the way in and out so callers can never alias the stored state.
type MemoryRoomRepository struct {
	mu    sync.RWMutex
	rooms map[string]*models.Room
}

func NewMemoryRoomRepository() *MemoryRoomRepository {
	return &MemoryRoomRepository{
		rooms: make(map[string]*models.Room),
	}
}

func (r *MemoryRoomRepository) Get(roomID string) (*models.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}

	return copyRoom(room), nil
}

func (r *MemoryRoomRepository) Set(roomID string, room *models.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rooms[roomID] = copyRoom(room)
	return nil
}

func (r *MemoryRoomRepository) Delete(roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.rooms, roomID)
	return nil
}

func (r *MemoryRoomRepository) List() ([]*models.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]*models.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, copyRoom(room))
	}

	return rooms, nil
}

func (r *MemoryRoomRepository) FindByCode(code string) (*models.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, room := range r.rooms {
		if room.Code != nil && *room.Code == code {
			return copyRoom(room), nil
		}
	}

	return nil, ErrRoomNotFound
}

func copyRoom(room *models.Room) *models.Room {
	cp := *room

	if room.Code != nil {
		code := *room.Code
		cp.Code = &code
	}
	if room.StartTime != nil {
		start := *room.StartTime
		cp.StartTime = &start
	}
	if room.Duration != nil {
		duration := *room.Duration
		cp.Duration = &duration
	}

	cp.Players = make(models.PlayerList, len(room.Players))
	for i, p := range room.Players {
		pc := p
		if p.Lat != nil {
			lat := *p.Lat
			pc.Lat = &lat
		}
		if p.Lng != nil {
			lng := *p.Lng
			pc.Lng = &lng
		}
		cp.Players[i] = pc
	}

	return &cp
}
