package handlers

import (
	"github.com/gin-gonic/gin"

	"portfolio/api/apperr"
	"portfolio/api/models"
	"portfolio/api/services"
	"portfolio/api/utils"
)

type ContactHandlers struct {
	contacts *services.ContactService
}

func NewContactHandlers(contacts *services.ContactService) *ContactHandlers {
	return &ContactHandlers{contacts: contacts}
}

func (h *ContactHandlers) Submit(c *gin.Context) {
	var req models.ContactRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	sub, err := h.contacts.Submit(c.Request.Context(), req, utils.RequestInfo(c, h.contacts.Now()))
	if err != nil {
		_ = c.Error(err)
		return
	}

	created(c, "Message sent successfully! I'll get back to you soon.", gin.H{
		"id":        sub.ID,
		"timestamp": sub.CreatedAt,
	})
}

func (h *ContactHandlers) List(c *gin.Context) {
	ve := &apperr.ValidationError{}
	page, err := utils.ParseIntParam(c.Query("page"), 1, 1, 1<<20)
	if err != nil {
		ve.Add("page", err.Error())
	}
	limit, err := utils.ParseIntParam(c.Query("limit"), services.DefaultContactPageSize, 1, services.MaxContactPageSize)
	if err != nil {
		ve.Add("limit", err.Error())
	}
	if err := ve.OrNil(); err != nil {
		_ = c.Error(err)
		return
	}

	result, err := h.contacts.List(c.Request.Context(), services.ContactQuery{
		Page:   page,
		Limit:  limit,
		Status: c.Query("status"),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	ok(c, result)
}

func (h *ContactHandlers) UpdateStatus(c *gin.Context) {
	var req models.ContactStatusRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	sub, err := h.contacts.SetStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		_ = c.Error(err)
		return
	}
	ok(c, sub)
}
