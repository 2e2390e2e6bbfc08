package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"sprintarena-api/models"
	"sprintarena-api/repositories"
	"sprintarena-api/services"
	"sprintarena-api/utils"
)

type RoomController struct {
	rooms *services.RoomService
	codes *services.CodeService
}

func NewRoomController(rooms *services.RoomService, codes *services.CodeService) *RoomController {
	return &RoomController{
		rooms: rooms,
		codes: codes,
	}
}

// CreateRoom handles POST /rooms: create-or-join by location.
func (rc *RoomController) CreateRoom(c *gin.Context) {
	var req models.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendError(c, http.StatusBadRequest, "Missing required fields")
		return
	}

	if !utils.IsValidLatitude(*req.Lat) || !utils.IsValidLongitude(*req.Lng) {
		utils.SendError(c, http.StatusBadRequest, "Invalid coordinates")
		return
	}

	room, err := rc.rooms.CreateOrJoin(*req.Lat, *req.Lng, req.PlayerID, services.PlayerProfile{
		Name:   req.PlayerName,
		Color:  req.PlayerColor,
		Avatar: req.PlayerAvatar,
	})
	if err != nil {
		rc.respondError(c, err)
		return
	}

	utils.SendSuccess(c, gin.H{"room": room.View()})
}

// GetRoom handles GET /rooms/:roomId.
func (rc *RoomController) GetRoom(c *gin.Context) {
	room, err := rc.rooms.Get(c.Param("roomId"))
	if err != nil {
		rc.respondError(c, err)
		return
	}

	utils.SendSuccess(c, gin.H{"room": room.View()})
}

// RoomAction handles POST /rooms/:roomId, dispatching on the action field.
func (rc *RoomController) RoomAction(c *gin.Context) {
	roomID := c.Param("roomId")

	var req models.RoomActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendError(c, http.StatusBadRequest, "Missing action or playerId")
		return
	}

	profile := services.PlayerProfile{
		Name:   req.PlayerName,
		Color:  req.PlayerColor,
		Avatar: req.PlayerAvatar,
	}

	var (
		room *models.Room
		err  error
	)

	switch req.Action {
	case "join":
		room, err = rc.rooms.Join(roomID, req.PlayerID, profile, req.Lat, req.Lng)
	case "updatePlayer":
		room, err = rc.rooms.UpdateProfile(roomID, req.PlayerID, profile, req.Lat, req.Lng)
	case "start":
		room, err = rc.rooms.Start(roomID, req.PlayerID, req.Duration)
	case "update":
		room, err = rc.rooms.UpdateTelemetry(roomID, req.PlayerID, services.TelemetryUpdate{
			Lat:      req.Lat,
			Lng:      req.Lng,
			Distance: req.Distance,
			Speed:    req.Speed,
			Points:   req.Points,
		})
	case "leave":
		room, err = rc.rooms.Leave(roomID, req.PlayerID)
	default:
		utils.SendError(c, http.StatusBadRequest, "Unknown action")
		return
	}

	if err != nil {
		rc.respondError(c, err)
		return
	}

	utils.SendSuccess(c, gin.H{"room": room.View()})
}

// GetRoomByCode handles GET /rooms/code/:code, the canonical code-join path.
func (rc *RoomController) GetRoomByCode(c *gin.Context) {
	room, err := rc.codes.ResolveCode(c.Param("code"))
	if err != nil {
		rc.respondError(c, err)
		return
	}

	if len(room.Players) >= models.MaxPlayers {
		utils.SendError(c, http.StatusBadRequest, services.ErrRoomFull.Error())
		return
	}
	if room.IsActive {
		utils.SendError(c, http.StatusBadRequest, services.ErrRaceInProgress.Error())
		return
	}

	utils.SendSuccess(c, gin.H{"room": models.CodeLookupView{
		ID:          room.ID,
		Code:        room.Code,
		PlayerCount: len(room.Players),
		Players:     room.Players,
	}})
}

// FindRooms handles POST /rooms/find: joinable rooms within a radius.
func (rc *RoomController) FindRooms(c *gin.Context) {
	var req models.FindRoomsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendError(c, http.StatusBadRequest, "Missing location")
		return
	}

	radius := req.Radius
	if radius <= 0 {
		radius = 0.1 // ~100m default
	}

	rooms, err := rc.rooms.FindNearby(*req.Lat, *req.Lng, radius)
	if err != nil {
		rc.respondError(c, err)
		return
	}

	utils.SendSuccess(c, gin.H{"rooms": rooms})
}

// respondError maps service errors onto the HTTP status taxonomy.
func (rc *RoomController) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repositories.ErrRoomNotFound):
		utils.SendError(c, http.StatusNotFound, "Room not found")
	case errors.Is(err, services.ErrNotHost):
		utils.SendError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrRoomFull),
		errors.Is(err, services.ErrRaceInProgress),
		errors.Is(err, services.ErrNotEnoughPlayers),
		errors.Is(err, services.ErrInvalidCode):
		utils.SendError(c, http.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("room operation failed")
		utils.SendError(c, http.StatusInternalServerError, "Internal server error")
	}
}
