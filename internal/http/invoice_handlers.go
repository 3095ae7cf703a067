package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"invoicing-api/internal/domain"
	"invoicing-api/internal/service"
)

// invoiceRequest uses pointers so absent fields can be told apart from empty ones.
// A null or missing line_items decodes to a nil slice.
type invoiceRequest struct {
	Number       *string           `json:"number"`
	CustomerName *string           `json:"customer_name"`
	LineItems    []domain.LineItem `json:"line_items"`
}

func (h *Handler) listInvoices(c *gin.Context) {
	invoices, err := h.invoices.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoices)
}

func (h *Handler) getInvoice(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	invoice, err := h.invoices.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (h *Handler) createInvoice(c *gin.Context) {
	var req invoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	invoice, err := h.invoices.Create(c.Request.Context(), service.CreateInvoiceInput{
		Number:       deref(req.Number),
		CustomerName: deref(req.CustomerName),
		LineItems:    req.LineItems,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, invoice)
}

func (h *Handler) updateInvoice(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req invoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	invoice, err := h.invoices.Update(c.Request.Context(), id, service.UpdateInvoiceInput{
		Number:       req.Number,
		CustomerName: req.CustomerName,
		LineItems:    req.LineItems,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (h *Handler) deleteInvoice(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.invoices.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
