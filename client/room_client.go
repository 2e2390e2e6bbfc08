package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"sprintarena-api/models"
	"sprintarena-api/repositories"
	"sprintarena-api/services"
)

// RoomClient talks to the room coordination API over plain HTTP. All calls
// carry a short timeout with a deterministic fallback — a slow lookup
// degrades to "not found" rather than hanging the race loop.
type RoomClient struct {
	baseURL string
	client  *http.Client
}

func NewRoomClient(baseURL string) *RoomClient {
	return &RoomClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// envelope is the uniform response wrapper every endpoint returns.
type envelope struct {
	Success bool             `json:"success"`
	Error   string           `json:"error,omitempty"`
	Room    *models.RoomView `json:"room,omitempty"`
}

func (c *RoomClient) FetchRoom(ctx context.Context, roomID string) (*models.Room, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/rooms/"+roomID, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, repositories.ErrRoomNotFound
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, err
	}
	if !env.Success || env.Room == nil {
		return nil, fmt.Errorf("room fetch failed: %s", env.Error)
	}

	return &models.Room{
		ID:        env.Room.ID,
		Code:      env.Room.Code,
		HostID:    env.Room.HostID,
		IsActive:  env.Room.IsActive,
		StartTime: env.Room.StartTime,
		Duration:  env.Room.Duration,
		Players:   env.Room.Players,
	}, nil
}

func (c *RoomClient) PushTelemetry(ctx context.Context, roomID, playerID string, upd services.TelemetryUpdate) error {
	body := models.RoomActionRequest{
		Action:   "update",
		PlayerID: playerID,
		Lat:      upd.Lat,
		Lng:      upd.Lng,
		Distance: upd.Distance,
		Speed:    upd.Speed,
		Points:   upd.Points,
	}
	return c.postAction(ctx, roomID, body)
}

// Leave is the page-close path: best effort, errors reported but the caller
// treats them as advisory.
func (c *RoomClient) Leave(ctx context.Context, roomID, playerID string) error {
	return c.postAction(ctx, roomID, models.RoomActionRequest{
		Action:   "leave",
		PlayerID: playerID,
	})
}

func (c *RoomClient) postAction(ctx context.Context, roomID string, body models.RoomActionRequest) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/rooms/"+roomID, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return err
	}
	if !env.Success {
		return fmt.Errorf("room action %q failed: %s", body.Action, env.Error)
	}

	return nil
}
