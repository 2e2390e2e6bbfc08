package client

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sprintarena-api/controllers"
	"sprintarena-api/race"
	"sprintarena-api/repositories"
	"sprintarena-api/services"
)

var _ race.RoomAPI = (*RoomClient)(nil)

func newTestServer(t *testing.T) (*httptest.Server, *services.RoomService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repositories.NewMemoryRoomRepository()
	codes := services.NewCodeService(repo)
	rooms := services.NewRoomService(repo, codes, clockwork.NewFakeClockAt(time.UnixMilli(1_700_000_000_000)))
	rc := controllers.NewRoomController(rooms, codes)

	r := gin.New()
	r.GET("/api/v1/rooms/:roomId", rc.GetRoom)
	r.POST("/api/v1/rooms/:roomId", rc.RoomAction)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, rooms
}

func TestFetchRoom_RoundTrip(t *testing.T) {
	srv, rooms := newTestServer(t)
	created, err := rooms.CreateOrJoin(43.7735, -79.5019, "player-1", services.PlayerProfile{Name: "Ana"})
	require.NoError(t, err)

	c := NewRoomClient(srv.URL)
	room, err := c.FetchRoom(context.Background(), created.ID)

	require.NoError(t, err)
	assert.Equal(t, created.ID, room.ID)
	assert.Equal(t, "player-1", room.HostID)
	require.Len(t, room.Players, 1)
	assert.Equal(t, "Ana", room.Players[0].Name)
}

func TestFetchRoom_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	c := NewRoomClient(srv.URL)
	_, err := c.FetchRoom(context.Background(), "room-p0-p0")

	assert.ErrorIs(t, err, repositories.ErrRoomNotFound)
}

func TestPushTelemetry_UpdatesOwnSlot(t *testing.T) {
	srv, rooms := newTestServer(t)
	created, err := rooms.CreateOrJoin(43.7735, -79.5019, "player-1", services.PlayerProfile{})
	require.NoError(t, err)

	c := NewRoomClient(srv.URL)
	dist := 0.42
	speed := 12.0
	points := 5
	err = c.PushTelemetry(context.Background(), created.ID, "player-1", services.TelemetryUpdate{
		Distance: &dist,
		Speed:    &speed,
		Points:   &points,
	})
	require.NoError(t, err)

	room, err := rooms.Get(created.ID)
	require.NoError(t, err)
	p := room.Players.Find("player-1")
	require.NotNil(t, p)
	assert.Equal(t, 0.42, p.Distance)
	assert.Equal(t, 12.0, p.Speed)
	assert.Equal(t, 5, p.Points)
}

func TestLeave_RemovesPlayer(t *testing.T) {
	srv, rooms := newTestServer(t)
	created, err := rooms.CreateOrJoin(43.7735, -79.5019, "player-1", services.PlayerProfile{})
	require.NoError(t, err)
	_, err = rooms.Join(created.ID, "player-2", services.PlayerProfile{}, nil, nil)
	require.NoError(t, err)

	c := NewRoomClient(srv.URL)
	require.NoError(t, c.Leave(context.Background(), created.ID, "player-2"))

	room, err := rooms.Get(created.ID)
	require.NoError(t, err)
	assert.Nil(t, room.Players.Find("player-2"))
	assert.Len(t, room.Players, 1)
}
