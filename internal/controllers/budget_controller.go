package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"budgetly-be/internal/apperrors"
	"budgetly-be/internal/entities"
	"budgetly-be/internal/middleware"
	"budgetly-be/internal/models"
	"budgetly-be/internal/service"
)

type BudgetController struct {
	budgetService service.BudgetService
}

func NewBudgetController(budgetService service.BudgetService) *BudgetController {
	return &BudgetController{budgetService: budgetService}
}

// Create handles POST /api/v1/budget
func (bc *BudgetController) Create(c *gin.Context) {
	var req models.CreateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		respondError(c, err)
		return
	}

	response, err := bc.budgetService.Create(c.Request.Context(), middleware.UserID(c), models.BudgetInput{
		Name:   req.Name,
		Amount: *req.Amount,
		Date:   date,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response)
}

// List handles GET /api/v1/budget
func (bc *BudgetController) List(c *gin.Context) {
	var query models.ListBudgetsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondError(c, apperrors.InvalidInput("invalid query parameters", err))
		return
	}

	response, err := bc.budgetService.FindAll(c.Request.Context(), middleware.UserID(c), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// CheckLimit handles GET /api/v1/budget/check-limit
func (bc *BudgetController) CheckLimit(c *gin.Context) {
	response, err := bc.budgetService.CheckLimit(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// Analytics handles GET /api/v1/budget/analytics
func (bc *BudgetController) Analytics(c *gin.Context) {
	var query models.AnalyticsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondError(c, apperrors.InvalidInput("invalid query parameters", err))
		return
	}

	response, err := bc.budgetService.GetAnalytics(c.Request.Context(), middleware.UserID(c), query.TimeZone)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// Get handles GET /api/v1/budget/:id
func (bc *BudgetController) Get(c *gin.Context) {
	budget, err := bc.budgetService.FindOne(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if budget == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "budget not found"})
		return
	}
	c.JSON(http.StatusOK, budget)
}

// Update handles PATCH /api/v1/budget/:id
func (bc *BudgetController) Update(c *gin.Context) {
	var req models.UpdateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	patch := entities.BudgetPatch{Name: req.Name, Amount: req.Amount}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			respondError(c, err)
			return
		}
		patch.Date = &date
	}

	budget, err := bc.budgetService.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, budget)
}

// Delete handles DELETE /api/v1/budget/:id. Deleting an unknown id answers
// 200 with a null body.
func (bc *BudgetController) Delete(c *gin.Context) {
	budget, err := bc.budgetService.Remove(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, budget)
}
