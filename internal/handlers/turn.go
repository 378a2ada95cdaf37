package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// GetTURNConfig returns the ICE server list clients feed into their peer
// connections. The embedded TURN server answers STUN too, so both URLs point
// at the same listener. We use "turn:" rather than "turns:" because the
// listener is UDP only; media is already encrypted by DTLS-SRTP.
func (h *Handlers) GetTURNConfig(c *gin.Context) {
	host := c.Request.Host
	if idx := strings.Index(host, ":"); idx != -1 {
		host = host[:idx]
	}

	creds := h.turnServer.GetCredentials()

	stunURL := fmt.Sprintf("stun:%s:%d", host, h.config.TURNPort)
	turnURL := fmt.Sprintf("turn:%s:%d", host, h.config.TURNPort)

	iceServers := []map[string]any{
		{
			"urls": stunURL,
		},
		{
			"urls":       turnURL,
			"username":   creds.Username,
			"credential": creds.Password,
		},
	}

	h.logger.Debug("TURN config requested", "host", host)

	c.JSON(http.StatusOK, gin.H{
		"iceServers": iceServers,
	})
}
