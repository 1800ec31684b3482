package controllers

import (
	"net/http"

	"github.com/carrental/car-rental-api/services"
	"github.com/gin-gonic/gin"
)

// UpdateUserRequest represents the request body for updating a user profile
type UpdateUserRequest struct {
	FirstName   *string `json:"first_name" binding:"omitempty,min=1,max=100"`
	LastName    *string `json:"last_name" binding:"omitempty,max=100"`
	PhoneNumber *string `json:"phone_number" binding:"omitempty,len=10,numeric"`
}

// GetMyProfile handles GET /api/v1/users/me - gets current user's profile
func GetMyProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := services.GetAuthService().GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "", user)
}

// UpdateMyProfile handles PATCH /api/v1/users/me - updates current user's profile
func UpdateMyProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	user, err := services.GetAuthService().UpdateProfile(c.Request.Context(), userID, services.UpdateProfileInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "Profile updated successfully.", user)
}

// DeleteMyAccount handles DELETE /api/v1/users/me. Accounts with bookings
// that are neither returned nor cancelled cannot be deleted.
func DeleteMyAccount(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := services.GetAuthService().DeleteAccount(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "Profile deleted successfully.", nil)
}
