package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sprintarena-api/repositories"
	"sprintarena-api/services"
)

func newTestRouter(t *testing.T) (*gin.Engine, repositories.RoomRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repositories.NewMemoryRoomRepository()
	codes := services.NewCodeService(repo)
	rooms := services.NewRoomService(repo, codes, clockwork.NewFakeClockAt(time.UnixMilli(1_700_000_000_000)))
	rc := NewRoomController(rooms, codes)

	r := gin.New()
	r.POST("/api/v1/rooms", rc.CreateRoom)
	r.POST("/api/v1/rooms/find", rc.FindRooms)
	r.GET("/api/v1/rooms/code/:code", rc.GetRoomByCode)
	r.GET("/api/v1/rooms/:roomId", rc.GetRoom)
	r.POST("/api/v1/rooms/:roomId", rc.RoomAction)
	return r, repo
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed), "body: %s", w.Body.String())
	return w, parsed
}

func createRoom(t *testing.T, r *gin.Engine, playerID string) map[string]any {
	t.Helper()
	w, body := doJSON(t, r, http.MethodPost, "/api/v1/rooms", gin.H{
		"lat":      43.7735,
		"lng":      -79.5019,
		"playerId": playerID,
	})
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
	return body["room"].(map[string]any)
}

func TestCreateRoom_EnvelopeShape(t *testing.T) {
	r, _ := newTestRouter(t)

	w, body := doJSON(t, r, http.MethodPost, "/api/v1/rooms", gin.H{
		"lat":      43.7735,
		"lng":      -79.5019,
		"playerId": "player-1",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	room := body["room"].(map[string]any)
	assert.Equal(t, "room-p43774-n79502", room["id"])
	assert.Equal(t, "player-1", room["hostId"])
	assert.Len(t, room["players"], 1)
	code, ok := room["code"].(string)
	require.True(t, ok)
	assert.Len(t, code, 6)
}

func TestCreateRoom_MissingCoordinates(t *testing.T) {
	r, _ := newTestRouter(t)

	w, body := doJSON(t, r, http.MethodPost, "/api/v1/rooms", gin.H{
		"playerId": "player-1",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["error"])
}

func TestCreateRoom_InvalidCoordinates(t *testing.T) {
	r, _ := newTestRouter(t)

	w, body := doJSON(t, r, http.MethodPost, "/api/v1/rooms", gin.H{
		"lat":      91.0,
		"lng":      0.0,
		"playerId": "player-1",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid coordinates", body["error"])
}

func TestGetRoom_NotFound(t *testing.T) {
	r, _ := newTestRouter(t)

	w, body := doJSON(t, r, http.MethodGet, "/api/v1/rooms/room-p0-p0", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Room not found", body["error"])
}

func TestRoomAction_StartByNonHostForbidden(t *testing.T) {
	r, _ := newTestRouter(t)
	room := createRoom(t, r, "player-1")
	roomID := room["id"].(string)

	w, _ := doJSON(t, r, http.MethodPost, "/api/v1/rooms/"+roomID, gin.H{
		"action":   "join",
		"playerId": "player-2",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w, body := doJSON(t, r, http.MethodPost, "/api/v1/rooms/"+roomID, gin.H{
		"action":   "start",
		"playerId": "player-2",
	})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, false, body["success"])
}

func TestRoomAction_StartNeedsTwoPlayers(t *testing.T) {
	r, _ := newTestRouter(t)
	room := createRoom(t, r, "player-1")
	roomID := room["id"].(string)

	w, body := doJSON(t, r, http.MethodPost, "/api/v1/rooms/"+roomID, gin.H{
		"action":   "start",
		"playerId": "player-1",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, body["success"])
}

func TestRoomAction_StartMarksActive(t *testing.T) {
	r, _ := newTestRouter(t)
	room := createRoom(t, r, "player-1")
	roomID := room["id"].(string)

	w, _ := doJSON(t, r, http.MethodPost, "/api/v1/rooms/"+roomID, gin.H{
		"action":   "join",
		"playerId": "player-2",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w, body := doJSON(t, r, http.MethodPost, "/api/v1/rooms/"+roomID, gin.H{
		"action":   "start",
		"playerId": "player-1",
		"duration": 300,
	})

	require.Equal(t, http.StatusOK, w.Code)
	got := body["room"].(map[string]any)
	assert.Equal(t, true, got["isActive"])
	assert.NotNil(t, got["startTime"])
	assert.EqualValues(t, 300, got["duration"])
}

func TestRoomAction_JoinFullRoom(t *testing.T) {
	r, _ := newTestRouter(t)
	room := createRoom(t, r, "player-1")
	roomID := room["id"].(string)

	for i := 2; i <= 6; i++ {
		w, _ := doJSON(t, r, http.MethodPost, "/api/v1/rooms/"+roomID, gin.H{
			"action":   "join",
			"playerId": fmt.Sprintf("player-%d", i),
		})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w, body := doJSON(t, r, http.MethodPost, "/api/v1/rooms/"+roomID, gin.H{
		"action":   "join",
		"playerId": "player-7",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, body["success"])
}

func TestRoomAction_UnknownAction(t *testing.T) {
	r, _ := newTestRouter(t)
	room := createRoom(t, r, "player-1")
	roomID := room["id"].(string)

	w, body := doJSON(t, r, http.MethodPost, "/api/v1/rooms/"+roomID, gin.H{
		"action":   "explode",
		"playerId": "player-1",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Unknown action", body["error"])
}

func TestRoomAction_TelemetryUpdateRoundTrip(t *testing.T) {
	r, _ := newTestRouter(t)
	room := createRoom(t, r, "player-1")
	roomID := room["id"].(string)

	w, body := doJSON(t, r, http.MethodPost, "/api/v1/rooms/"+roomID, gin.H{
		"action":   "update",
		"playerId": "player-1",
		"lat":      43.774,
		"lng":      -79.502,
		"distance": 1.25,
		"speed":    14.5,
		"points":   13,
	})

	require.Equal(t, http.StatusOK, w.Code)
	players := body["room"].(map[string]any)["players"].([]any)
	require.Len(t, players, 1)
	p := players[0].(map[string]any)
	assert.EqualValues(t, 1.25, p["distance"])
	assert.EqualValues(t, 14.5, p["speed"])
	assert.EqualValues(t, 13, p["points"])
}

func TestGetRoomByCode_HappyPath(t *testing.T) {
	r, _ := newTestRouter(t)
	room := createRoom(t, r, "player-1")
	code := room["code"].(string)

	w, body := doJSON(t, r, http.MethodGet, "/api/v1/rooms/code/"+code, nil)

	require.Equal(t, http.StatusOK, w.Code)
	got := body["room"].(map[string]any)
	assert.Equal(t, room["id"], got["id"])
	assert.EqualValues(t, 1, got["playerCount"])
}

func TestGetRoomByCode_NormalizesCase(t *testing.T) {
	r, _ := newTestRouter(t)
	room := createRoom(t, r, "player-1")
	code := room["code"].(string)

	lower := ""
	for _, ch := range code {
		if ch >= 'A' && ch <= 'Z' {
			ch += 'a' - 'A'
		}
		lower += string(ch)
	}

	w, _ := doJSON(t, r, http.MethodGet, "/api/v1/rooms/code/"+lower, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetRoomByCode_InvalidFormat(t *testing.T) {
	r, _ := newTestRouter(t)

	w, body := doJSON(t, r, http.MethodGet, "/api/v1/rooms/code/ab", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, body["success"])
}

func TestGetRoomByCode_UnknownCode(t *testing.T) {
	r, _ := newTestRouter(t)

	w, body := doJSON(t, r, http.MethodGet, "/api/v1/rooms/code/ZZZZZZ", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, body["success"])
}

func TestGetRoomByCode_ActiveRoomRejected(t *testing.T) {
	r, _ := newTestRouter(t)
	room := createRoom(t, r, "player-1")
	roomID := room["id"].(string)
	code := room["code"].(string)

	w, _ := doJSON(t, r, http.MethodPost, "/api/v1/rooms/"+roomID, gin.H{
		"action":   "join",
		"playerId": "player-2",
	})
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = doJSON(t, r, http.MethodPost, "/api/v1/rooms/"+roomID, gin.H{
		"action":   "start",
		"playerId": "player-1",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w, body := doJSON(t, r, http.MethodGet, "/api/v1/rooms/code/"+code, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, body["success"])
}

func TestFindRooms_ReturnsNearbyJoinable(t *testing.T) {
	r, _ := newTestRouter(t)
	createRoom(t, r, "player-1")

	w, body := doJSON(t, r, http.MethodPost, "/api/v1/rooms/find", gin.H{
		"lat":    43.7736,
		"lng":    -79.5019,
		"radius": 0.5,
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	rooms := body["rooms"].([]any)
	require.Len(t, rooms, 1)
	assert.Equal(t, "room-p43774-n79502", rooms[0].(map[string]any)["id"])
}
