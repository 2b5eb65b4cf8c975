package http

import (
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkarev/pokerboard/internal/domain"
)

// Profile endpoints keep the user's display name and role in the cookie
// session so a returning browser gets its form prefilled. This is comfort
// only; the authoritative participant record still comes from
// upsert-participant.

func (h *CommandHandler) GetProfile(c *gin.Context) {
	sess := sessions.Default(c)
	name, _ := sess.Get("profile_name").(string)
	role, _ := sess.Get("profile_role").(string)
	c.JSON(200, gin.H{"name": name, "role": role})
}

func (h *CommandHandler) SaveProfile(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
		Role string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid JSON"})
		return
	}

	name := strings.TrimSpace(req.Name)
	role := domain.Role(strings.TrimSpace(req.Role))
	if name == "" || len(name) > domain.MaxNameLen || !role.Valid() {
		c.JSON(400, gin.H{"error": "Invalid payload"})
		return
	}

	sess := sessions.Default(c)
	sess.Set("profile_name", name)
	sess.Set("profile_role", string(role))
	if err := sess.Save(); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("save profile session")
		c.JSON(500, gin.H{"error": "Internal Server Error"})
		return
	}
	c.Status(204)
}
