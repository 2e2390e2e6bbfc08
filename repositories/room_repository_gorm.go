package repositories

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sprintarena-api/models"
)

// GormRoomRepository backs the room store with a database table. Upserts are
// last-write-wins on the id column, matching the memory implementation.
type GormRoomRepository struct {
	db *gorm.DB
}

func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	return &GormRoomRepository{db: db}
}

func (r *GormRoomRepository) Get(roomID string) (*models.Room, error) {
	var room models.Room
	if err := r.db.First(&room, "id = ?", roomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	return &room, nil
}

func (r *GormRoomRepository) Set(roomID string, room *models.Room) error {
	room.ID = roomID
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(room).Error
}

func (r *GormRoomRepository) Delete(roomID string) error {
	return r.db.Delete(&models.Room{}, "id = ?", roomID).Error
}

func (r *GormRoomRepository) List() ([]*models.Room, error) {
	var rooms []*models.Room
	if err := r.db.Order("created_at DESC").Find(&rooms).Error; err != nil {
		return nil, err
	}

	return rooms, nil
}

func (r *GormRoomRepository) FindByCode(code string) (*models.Room, error) {
	var room models.Room
	if err := r.db.First(&room, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	return &room, nil
}
