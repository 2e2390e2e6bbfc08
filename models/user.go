package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// User is an account in the credential store. The race core only ever sees
// the id plus the {name, color, avatar} profile.
type User struct {
	ID          string      `json:"id" gorm:"primaryKey;size:191"`
	Name        string      `json:"name" gorm:"not null;size:255"`
	Email       string      `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Password    string      `json:"-" gorm:"not null;size:255"`
	Color       string      `json:"color" gorm:"size:20"`
	Avatar      string      `json:"avatar" gorm:"size:20"`
	RaceHistory RaceHistory `json:"raceHistory" gorm:"type:json"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// RaceResult is one finished race from the results screen, newest first.
type RaceResult struct {
	Date     string  `json:"date"`
	Position int     `json:"position"`
	Distance float64 `json:"distance"`
	Time     int     `json:"time"`
	Speed    float64 `json:"speed"`
}

type RaceHistory []RaceResult

func (rh RaceHistory) Value() (driver.Value, error) {
	if rh == nil {
		rh = RaceHistory{}
	}
	return json.Marshal(rh)
}

func (rh *RaceHistory) Scan(value interface{}) error {
	if value == nil {
		*rh = RaceHistory{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for RaceHistory")
	}

	return json.Unmarshal(data, rh)
}

func (User) TableName() string {
	return "users"
}
