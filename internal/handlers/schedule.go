package handlers

import (
	"net/http"

	"hive_schedule/internal/models"
	"hive_schedule/internal/service"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK      = "ok"
	statusDaySet  = "day_set"
	statusWeekSet = "week_set"

	errInvalidBodyPref = "invalid body: "
)

// DayScheduleRequest replaces one day. Give either schedule or a profile name.
type DayScheduleRequest struct {
	Schedule models.DaySchedule `json:"schedule,omitempty"`
	// Named profile from the config; "custom" or empty means use schedule.
	Profile string `json:"profile,omitempty" example:"weekday"`
}

// WeekScheduleRequest replaces the whole week; days left out get 16°C all day.
type WeekScheduleRequest struct {
	Schedule models.WeekSchedule `json:"schedule" binding:"required"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Read the heating schedule
// @Tags         schedules
// @Produce      json
// @Param        node_id  path      string  true  "Heating node id"
// @Success      200      {object}  map[string]interface{}  "node_id, schedule"
// @Failure      401      {object}  map[string]string
// @Failure      404      {object}  map[string]string
// @Failure      409      {object}  map[string]string
// @Failure      502      {object}  map[string]string
// @Failure      504      {object}  map[string]string
// @Router       /api/v1/schedules/{node_id} [get]
// @Security     BearerAuth
func (h *Handler) getSchedule(c *gin.Context) {
	nodeID := c.Param("node_id")
	week, err := h.services.Schedule.GetSchedule(c.Request.Context(), nodeID)
	if err != nil {
		h.respondError(c, "schedule_get_failed", err, "node_id", nodeID)
		return
	}
	c.JSON(http.StatusOK, gin.H{"node_id": nodeID, "schedule": week})
}

// @Summary      Set one day
// @Description  Reads the current week and rewrites it with only this day changed.
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        node_id  path      string              true  "Heating node id"
// @Param        day      path      string              true  "Weekday"  Enums(monday,tuesday,wednesday,thursday,friday,saturday,sunday)
// @Param        body     body      DayScheduleRequest  true  "Day program"
// @Success      200      {object}  map[string]string
// @Failure      400      {object}  map[string]string
// @Failure      401      {object}  map[string]string
// @Failure      404      {object}  map[string]string
// @Failure      409      {object}  map[string]string
// @Failure      502      {object}  map[string]string
// @Failure      504      {object}  map[string]string
// @Router       /api/v1/schedules/{node_id}/days/{day} [put]
// @Security     BearerAuth
func (h *Handler) setDay(c *gin.Context) {
	var req DayScheduleRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	p := service.DayParams{
		NodeID:  c.Param("node_id"),
		Day:     c.Param("day"),
		Entries: req.Schedule,
		Profile: req.Profile,
	}
	if err := h.services.Schedule.SetDaySchedule(c.Request.Context(), p); err != nil {
		h.respondError(c, "schedule_set_day_failed", err, "node_id", p.NodeID, "day", p.Day)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusDaySet, "day": p.Day})
}

// @Summary      Replace the whole week
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        node_id  path      string               true  "Heating node id"
// @Param        body     body      WeekScheduleRequest  true  "Week program"
// @Success      200      {object}  map[string]string
// @Failure      400      {object}  map[string]string
// @Failure      401      {object}  map[string]string
// @Failure      409      {object}  map[string]string
// @Failure      502      {object}  map[string]string
// @Router       /api/v1/schedules/{node_id} [put]
// @Security     BearerAuth
func (h *Handler) setWeek(c *gin.Context) {
	var req WeekScheduleRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	nodeID := c.Param("node_id")
	if err := h.services.Schedule.SetHeatingSchedule(c.Request.Context(), nodeID, req.Schedule); err != nil {
		h.respondError(c, "schedule_set_week_failed", err, "node_id", nodeID)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusWeekSet})
}

// @Summary      List day profiles
// @Tags         schedules
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/profiles [get]
// @Security     BearerAuth
func (h *Handler) listProfiles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"profiles": h.services.Schedule.Profiles()})
}
