package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/carrental/car-rental-api/middleware"
	"github.com/carrental/car-rental-api/services"
	"github.com/carrental/car-rental-api/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var kindStatus = map[services.ErrorKind]int{
	services.KindValidation: http.StatusBadRequest,
	services.KindAuth:       http.StatusUnauthorized,
	services.KindForbidden:  http.StatusForbidden,
	services.KindNotFound:   http.StatusNotFound,
	services.KindConflict:   http.StatusConflict,
	services.KindGateway:    http.StatusInternalServerError,
}

func respondSuccess(c *gin.Context, status int, message string, data interface{}) {
	body := gin.H{
		"success": true,
		"message": message,
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

func respondErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"message": message,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func respondValidation(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"message": "Invalid request data",
		"error": gin.H{
			"code":    "VALIDATION_ERROR",
			"message": "Invalid request data",
			"details": err.Error(),
		},
	})
}

// respondError maps service errors to the error envelope. Anything that is
// not a known domain error is logged and reported as a 500.
func respondError(c *gin.Context, err error) {
	if de, ok := services.AsDomainError(err); ok {
		status, known := kindStatus[de.Kind]
		if !known {
			status = http.StatusBadRequest
		}
		respondErrorCode(c, status, de.Code, de.Message)
		return
	}

	var uploadErr *utils.FileUploadError
	if errors.As(err, &uploadErr) {
		respondErrorCode(c, http.StatusBadRequest, uploadErr.Code, uploadErr.Message)
		return
	}

	_ = c.Error(err)
	zap.L().Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err))
	respondErrorCode(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong, please try again later.")
}

// currentUserID reads the authenticated user or writes a 401
func currentUserID(c *gin.Context) (uint, bool) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		respondErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return 0, false
	}
	return userID, true
}

func currentActor(c *gin.Context) (services.Actor, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		return services.Actor{}, false
	}
	return services.Actor{UserID: userID, IsAdmin: middleware.IsAdmin(c)}, true
}

// paramID parses a positive numeric path parameter or writes a 400
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondErrorCode(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+name+".")
		return 0, false
	}
	return uint(id), true
}
