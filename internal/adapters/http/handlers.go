package http

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkarev/pokerboard/internal/app"
	"github.com/dkarev/pokerboard/internal/core"
	"github.com/dkarev/pokerboard/internal/domain"
)

type CommandHandler struct {
	coord *app.Coordinator
}

func NewCommandHandler(coord *app.Coordinator) *CommandHandler {
	return &CommandHandler{coord: coord}
}

func commandError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidVote):
		c.JSON(400, gin.H{"error": "Invalid vote"})
	case errors.Is(err, core.ErrInvalidPayload):
		c.JSON(400, gin.H{"error": "Invalid payload"})
	default:
		log.Error().Err(err).Str("module", "adapters.http").Msg("command failed")
		c.JSON(500, gin.H{"error": "Internal Server Error"})
	}
}

func (h *CommandHandler) UpsertParticipant(c *gin.Context) {
	var req struct {
		RoomID string `json:"roomId"`
		UserID string `json:"userId"`
		Name   string `json:"name"`
		Role   string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid JSON"})
		return
	}

	role := domain.Role(strings.TrimSpace(req.Role))
	if !role.Valid() {
		c.JSON(400, gin.H{"error": "Invalid payload"})
		return
	}
	if err := h.coord.UpsertParticipant(req.RoomID, req.UserID, req.Name, role); err != nil {
		commandError(c, err)
		return
	}
	c.Status(204)
}

func (h *CommandHandler) SubmitVote(c *gin.Context) {
	var req struct {
		RoomID string  `json:"roomId"`
		UserID string  `json:"userId"`
		Vote   *string `json:"vote"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid JSON"})
		return
	}

	var vote *domain.Vote
	if req.Vote != nil {
		v := domain.Vote(strings.TrimSpace(*req.Vote))
		vote = &v
	}
	if err := h.coord.SubmitVote(req.RoomID, req.UserID, vote); err != nil {
		commandError(c, err)
		return
	}
	c.Status(204)
}

func (h *CommandHandler) Reveal(c *gin.Context) {
	h.roomCommand(c, h.coord.Reveal)
}

func (h *CommandHandler) Reset(c *gin.Context) {
	h.roomCommand(c, h.coord.Reset)
}

func (h *CommandHandler) roomCommand(c *gin.Context, cmd func(string) error) {
	var req struct {
		RoomID string `json:"roomId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid JSON"})
		return
	}
	if err := cmd(req.RoomID); err != nil {
		commandError(c, err)
		return
	}
	c.Status(204)
}

// RoomSnapshot serves the current sorted session for initial page render;
// everything after that arrives over the websocket.
func (h *CommandHandler) RoomSnapshot(c *gin.Context) {
	roomID := strings.TrimSpace(c.Param("id"))
	if roomID == "" {
		c.JSON(400, gin.H{"error": "Invalid payload"})
		return
	}
	c.JSON(200, gin.H{
		"roomId":  roomID,
		"session": h.coord.Snapshot(roomID),
	})
}
