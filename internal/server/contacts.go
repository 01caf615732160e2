package server

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/voixlabs/dialdash/internal/store"
)

type ContactRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	VAT   string `json:"vat"`
	Email string `json:"email"`
}

func (r ContactRequest) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return newValidationError("name", "required", "name is required")
	}
	if strings.TrimSpace(r.Phone) == "" {
		return newValidationError("phone", "required", "phone is required")
	}
	return nil
}

func (s *Server) ListContacts(c *gin.Context) {
	h := handleFrom(c)

	contacts, err := h.Store.ListContacts(c.Request.Context(), h.Token, store.ContactFilter{
		Name: strings.TrimSpace(c.Query("name")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	sort.Slice(contacts, func(i, j int) bool {
		return strings.ToLower(contacts[i].Name) < strings.ToLower(contacts[j].Name)
	})

	c.JSON(http.StatusOK, gin.H{"items": contacts})
}

func (s *Server) GetContact(c *gin.Context) {
	h := handleFrom(c)

	contact, err := h.Store.GetContact(c.Request.Context(), h.Token, c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, contact)
}

func (s *Server) CreateContact(c *gin.Context) {
	h := handleFrom(c)

	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if err := req.validate(); err != nil {
		AbortWithError(c, err)
		return
	}

	contact, err := h.Store.CreateContact(c.Request.Context(), h.Token, store.Contact{
		Name:  strings.TrimSpace(req.Name),
		Phone: strings.TrimSpace(req.Phone),
		VAT:   strings.TrimSpace(req.VAT),
		Email: strings.TrimSpace(req.Email),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, contact)
}

func (s *Server) UpdateContact(c *gin.Context) {
	h := handleFrom(c)

	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if err := req.validate(); err != nil {
		AbortWithError(c, err)
		return
	}

	contact, err := h.Store.UpdateContact(c.Request.Context(), h.Token, store.Contact{
		ID:    c.Param("id"),
		Name:  strings.TrimSpace(req.Name),
		Phone: strings.TrimSpace(req.Phone),
		VAT:   strings.TrimSpace(req.VAT),
		Email: strings.TrimSpace(req.Email),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, contact)
}

func (s *Server) DeleteContact(c *gin.Context) {
	h := handleFrom(c)

	if err := h.Store.DeleteContact(c.Request.Context(), h.Token, c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
