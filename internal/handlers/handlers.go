package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"lendingdesk/internal/models"
	"lendingdesk/internal/repositories"
	"lendingdesk/internal/services"
)

type LendingHandler struct {
	svc services.LendingService
}

func RegisterRoutes(r *gin.Engine, svc services.LendingService) {
	h := &LendingHandler{svc: svc}

	// Catalog endpoints
	r.POST("/items", h.addItem)
	r.GET("/items", h.searchItems)
	r.GET("/items/:id", h.getItem)
	r.POST("/borrowers", h.registerBorrower)
	r.GET("/borrowers/:id", h.getBorrower)

	// Lending endpoints
	r.POST("/items/:id/borrow", h.borrowItem)
	r.POST("/items/:id/return", h.returnItem)

	// Reports and maintenance
	r.GET("/stats", h.stats)
	r.GET("/overdue", h.overdue)
	r.GET("/integrity", h.integrity)
	r.POST("/save", h.save)
}

type addItemRequest struct {
	ID      string `json:"id"`
	Title   string `json:"title" binding:"required"`
	Creator string `json:"creator"`
	Year    *int   `json:"year" binding:"omitempty,min=0"`
}

func (h *LendingHandler) addItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.svc.AddItem(req.ID, req.Title, req.Creator, req.Year)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *LendingHandler) searchItems(c *gin.Context) {
	items := h.svc.SearchItems(c.Query("q"))
	c.JSON(http.StatusOK, gin.H{"data": items, "count": len(items)})
}

func (h *LendingHandler) getItem(c *gin.Context) {
	item, err := h.svc.GetItem(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

type registerBorrowerRequest struct {
	ID   string `json:"id"`
	Name string `json:"name" binding:"required"`
}

func (h *LendingHandler) registerBorrower(c *gin.Context) {
	var req registerBorrowerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	borrower, err := h.svc.RegisterBorrower(req.ID, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, borrower)
}

func (h *LendingHandler) getBorrower(c *gin.Context) {
	borrower, err := h.svc.GetBorrower(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, borrower)
}

type lendingRequest struct {
	BorrowerID string `json:"borrower_id" binding:"required"`
}

func (h *LendingHandler) borrowItem(c *gin.Context) {
	var req lendingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	loan, err := h.svc.Borrow(c.Param("id"), req.BorrowerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  loan.Message,
		"due_date": models.FormatDate(loan.DueDate),
	})
}

func (h *LendingHandler) returnItem(c *gin.Context) {
	var req lendingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ret, err := h.svc.Return(c.Param("id"), req.BorrowerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      ret.Message,
		"overdue":      ret.Overdue,
		"days_overdue": ret.DaysOverdue,
		"fine":         services.FormatFine(ret.FineCents),
	})
}

func (h *LendingHandler) stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Stats())
}

func (h *LendingHandler) overdue(c *gin.Context) {
	entries := h.svc.OverdueItems()
	c.JSON(http.StatusOK, gin.H{"data": entries, "count": len(entries)})
}

func (h *LendingHandler) integrity(c *gin.Context) {
	violations := h.svc.VerifyIntegrity()
	c.JSON(http.StatusOK, gin.H{"consistent": len(violations) == 0, "violations": violations})
}

func (h *LendingHandler) save(c *gin.Context) {
	if err := h.svc.Save(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Data saved successfully."})
}

// respondError maps domain errors to status codes. Integrity failures are the only
// domain condition reported as a server error.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrInconsistentState):
		// keeps the 500 even if a user-error sentinel is wrapped alongside
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, repositories.ErrDuplicateID),
		errors.Is(err, models.ErrAlreadyCheckedOut),
		errors.Is(err, models.ErrAlreadyAvailable):
		status = http.StatusConflict
	case errors.Is(err, models.ErrLimitReached),
		errors.Is(err, models.ErrLoanNotFound),
		errors.Is(err, services.ErrInvalidInput):
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}
