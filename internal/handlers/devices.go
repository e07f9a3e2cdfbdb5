package handlers

import (
	"net/http"

	"greenhouse_control/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	statusOK = "ok"

	errListDevices   = "failed to load device status"
	errSetDevice     = "failed to switch device"
	errListSchedules = "failed to load schedules"
	errUnknownDevice = "unknown device; use water, fertilizer or cooler"
)

// logAndJSONError logs err under logKey and answers with userMsg.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// SetDeviceRequest switches one device.
type SetDeviceRequest struct {
	On *bool `json:"on" binding:"required" example:"true"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}

// @Summary      List device status
// @Tags         devices
// @Produce      json
// @Success      200  {array}   models.DeviceStatus
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/devices [get]
// @Security     BearerAuth
func (h *Handler) listDevices(c *gin.Context) {
	st, err := h.services.Statuses(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errListDevices, "devices_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Switch a device on or off
// @Tags         devices
// @Accept       json
// @Produce      json
// @Param        device  path      string            true  "Device"  Enums(water,fertilizer,cooler)
// @Param        body    body      SetDeviceRequest  true  "Target state"
// @Success      200     {object}  models.DeviceStatus
// @Failure      400     {object}  map[string]string
// @Failure      401     {object}  map[string]string
// @Failure      500     {object}  map[string]string
// @Router       /api/v1/devices/{device} [post]
// @Security     BearerAuth
func (h *Handler) setDevice(c *gin.Context) {
	device, err := models.ParseDevice(c.Param("device"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errUnknownDevice})
		return
	}

	var req SetDeviceRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}

	if err := h.services.SetPower(c.Request.Context(), device, *req.On, models.SourceAPI); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errSetDevice, "device_set_failed", err, "device", device)
		return
	}
	h.log.Infow("device_set", "device", device, "on", *req.On, "operator", c.GetInt(operatorCtxKey))
	c.JSON(http.StatusOK, models.DeviceStatus{Device: device, On: *req.On})
}

// @Summary      Show stored schedules
// @Tags         schedules
// @Produce      json
// @Success      200  {object}  models.ScheduleSet
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/schedules [get]
// @Security     BearerAuth
func (h *Handler) listSchedules(c *gin.Context) {
	set, err := h.services.Schedules.All(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errListSchedules, "schedules_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, set)
}

// @Summary      List pending scheduled shutoffs
// @Description  In-memory only; a restart forgets them.
// @Tags         schedules
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, shutoffs"
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/shutoffs [get]
// @Security     BearerAuth
func (h *Handler) listShutoffs(c *gin.Context) {
	pending := h.services.Pending()
	c.JSON(http.StatusOK, gin.H{
		"count":    len(pending),
		"shutoffs": pending,
	})
}
