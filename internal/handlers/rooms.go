package handlers

import (
	"errors"
	"net/http"

	"github.com/parlorchat/parlor/internal/chat"

	"github.com/gin-gonic/gin"
)

type createInviteRequest struct {
	Password string `json:"password" binding:"required"`
}

type createInviteResponse struct {
	InviteToken string `json:"inviteToken"`
}

// ListRooms returns room names in creation order, same view as the get-rooms
// websocket event.
func (h *Handlers) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.chat.RoomNames()})
}

// CreateInvite mints a signed invite token for a room. The caller proves
// knowledge of the room password once; holders of the token then join
// without it until the token expires.
func (h *Handlers) CreateInvite(c *gin.Context) {
	roomName := c.Param("name")

	var req createInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.chat.CheckRoomCredential(roomName, req.Password); err != nil {
		switch {
		case errors.Is(err, chat.ErrRoomNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		case errors.Is(err, chat.ErrBadCredential):
			c.JSON(http.StatusForbidden, gin.H{"error": "incorrect password"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	token, err := h.invites.MintInvite(roomName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mint invite"})
		return
	}

	h.logger.Info("invite minted", "room", roomName)
	c.JSON(http.StatusOK, createInviteResponse{InviteToken: token})
}
