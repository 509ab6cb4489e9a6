package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"eventcrm/internal/services"
)

type EventHandler struct {
	events    services.EventService
	reminders services.ReminderService
}

func NewEventHandler(events services.EventService, reminders services.ReminderService) *EventHandler {
	return &EventHandler{events: events, reminders: reminders}
}

// @Summary      Create an event
// @Description  Creates the event with its department assignments, their tasks and reminders, then notifies stakeholders.
// @Tags         Events
// @Accept       json
// @Produce      json
// @Param        event  body      services.EventInput  true  "Event"
// @Success      201    {object}  services.EventResult
// @Failure      400    {object}  map[string]string
// @Router       /events [post]
func (h *EventHandler) Create(c *gin.Context) {
	userID, roleID := getUserAndRole(c)
	log.Printf("[event][create] call by userID=%d role=%d", userID, roleID)

	var in services.EventInput
	if err := c.ShouldBindJSON(&in); err != nil {
		log.Printf("[event][create][bind][err] %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.events.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, "event][create", err)
		return
	}
	log.Printf("[event][create][ok] id=%d reminders=%d", res.Event.ID, len(res.Reminders))
	c.JSON(http.StatusCreated, res)
}

// @Summary      Get an event
// @Tags         Events
// @Produce      json
// @Param        id   path      int  true  "Event ID"
// @Success      200  {object}  models.Event
// @Failure      404  {object}  map[string]string
// @Router       /events/{id} [get]
func (h *EventHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "event][getByID")
	if !ok {
		return
	}
	event, err := h.events.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, "event][getByID", err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// updateEventRequest: a null end_date clears it, a missing one leaves it alone.
type updateEventRequest struct {
	services.EventPatch
	EndDate optional[time.Time] `json:"end_date"`
}

// @Summary      Update an event
// @Description  Applies the changes, replaces all reminders of the event and notifies stakeholders.
// @Tags         Events
// @Accept       json
// @Produce      json
// @Param        id     path      int                  true  "Event ID"
// @Param        event  body      updateEventRequest   true  "Changes"
// @Success      200    {object}  services.EventResult
// @Failure      400    {object}  map[string]string
// @Failure      404    {object}  map[string]string
// @Router       /events/{id} [patch]
func (h *EventHandler) Update(c *gin.Context) {
	userID, roleID := getUserAndRole(c)
	id, ok := parseID(c, "event][update")
	if !ok {
		return
	}
	log.Printf("[event][update] call by userID=%d role=%d id=%d", userID, roleID, id)

	var req updateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[event][update][bind][err] %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	patch := req.EventPatch
	if req.EndDate.Set {
		end := req.EndDate.Value
		patch.EndDate = &end
	}

	res, err := h.events.Update(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, "event][update", err)
		return
	}
	log.Printf("[event][update][ok] id=%d reminders=%d", id, len(res.Reminders))
	c.JSON(http.StatusOK, res)
}

// @Summary      List the reminders of an event
// @Tags         Reminders
// @Produce      json
// @Param        id   path      int  true  "Event ID"
// @Success      200  {array}   models.Reminder
// @Failure      404  {object}  map[string]string
// @Router       /events/{id}/reminders [get]
func (h *EventHandler) ListReminders(c *gin.Context) {
	id, ok := parseID(c, "reminder][list")
	if !ok {
		return
	}
	reminders, err := h.reminders.ListByEvent(c.Request.Context(), id)
	if err != nil {
		respondError(c, "reminder][list", err)
		return
	}
	c.JSON(http.StatusOK, reminders)
}

// @Summary      Delete a reminder
// @Description  Only reminders that have not been sent can be deleted.
// @Tags         Reminders
// @Param        id   path  int  true  "Reminder ID"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /reminders/{id} [delete]
func (h *EventHandler) DeleteReminder(c *gin.Context) {
	id, ok := parseID(c, "reminder][delete")
	if !ok {
		return
	}
	if err := h.reminders.Delete(c.Request.Context(), id); err != nil {
		respondError(c, "reminder][delete", err)
		return
	}
	log.Printf("[reminder][delete][ok] id=%d", id)
	c.Status(http.StatusNoContent)
}
