package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"budgetly-be/internal/middleware"
	"budgetly-be/internal/service"
)

type UserController struct {
	userService service.UserService
}

func NewUserController(userService service.UserService) *UserController {
	return &UserController{userService: userService}
}

// Me handles GET /api/v1/users/me
func (uc *UserController) Me(c *gin.Context) {
	user, err := uc.userService.Profile(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Delete handles DELETE /api/v1/users/me
func (uc *UserController) Delete(c *gin.Context) {
	response, err := uc.userService.Remove(c.Request.Context(), middleware.Email(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}
