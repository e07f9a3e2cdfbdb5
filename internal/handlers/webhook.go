package handlers

import (
	"net/http"
	"strings"

	"greenhouse_control/internal/command"

	"github.com/gin-gonic/gin"
)

const (
	webhookBadRequest = "Bad Request: Missing message body or sender info."
	webhookFailed     = "Internal Server Error"
	webhookSent       = "Message sent"
)

// @Summary      Inbound chat message
// @Description  Called by the messaging gateway for every inbound message. The reply is sent back through the gateway, not in the response body.
// @Tags         webhook
// @Accept       x-www-form-urlencoded
// @Produce      plain
// @Param        Body  formData  string  true  "Message text"
// @Param        From  formData  string  true  "Sender address, e.g. whatsapp:+628123"
// @Success      200   {string}  string  "Message sent"
// @Failure      400   {string}  string
// @Failure      500   {string}  string
// @Router       /webhook [post]
func (h *Handler) webhook(c *gin.Context) {
	body := c.PostForm("Body")
	from := strings.TrimSpace(c.PostForm("From"))
	if strings.TrimSpace(body) == "" || from == "" {
		c.String(http.StatusBadRequest, webhookBadRequest)
		return
	}

	ctx := c.Request.Context()
	cmd := command.Parse(body)
	h.log.Infow("webhook_received", "from", from, "command", commandName(cmd))

	reply, err := h.services.Dispatch(ctx, cmd)
	if err != nil {
		h.log.Errorw("webhook_dispatch_failed", "from", from, "err", err)
		c.String(http.StatusInternalServerError, webhookFailed)
		return
	}

	if strings.TrimSpace(reply) == "" {
		h.log.Warnw("webhook_empty_reply", "from", from)
		c.String(http.StatusOK, webhookSent)
		return
	}

	if err := h.messenger.Send(ctx, from, reply); err != nil {
		h.log.Errorw("webhook_send_failed", "to", from, "err", err)
		c.String(http.StatusInternalServerError, webhookFailed)
		return
	}
	c.String(http.StatusOK, webhookSent)
}

func commandName(cmd command.Command) string {
	switch c := cmd.(type) {
	case command.Greeting:
		return "greeting"
	case command.MenuRequest:
		return "menu"
	case command.ScheduleDefinition:
		return "schedule_" + string(c.Kind)
	case command.DeviceToggle:
		return "toggle_" + string(c.Device)
	case command.AutoModeToggle:
		return "auto_" + string(c.Device)
	case command.SensorQuery:
		return "sensor"
	case command.Unrecognized:
		if c.FormatError {
			return "format_error"
		}
		return "unrecognized"
	}
	return "unknown"
}
