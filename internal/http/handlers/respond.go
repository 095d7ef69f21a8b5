package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error bodies always carry a human-readable message; validation failures
// additionally carry a field -> message map under "errors".

func RespondValidation(ctx *gin.Context, message string, errs map[string]string) {
	ctx.JSON(http.StatusBadRequest, gin.H{
		"message": message,
		"errors":  errs,
	})
}

func RespondBadRequest(ctx *gin.Context, message string) {
	ctx.JSON(http.StatusBadRequest, gin.H{"message": message})
}

func RespondForbidden(ctx *gin.Context, message string) {
	ctx.JSON(http.StatusForbidden, gin.H{"message": message})
}

func RespondNotFound(ctx *gin.Context, message string) {
	ctx.JSON(http.StatusNotFound, gin.H{"message": message})
}

func RespondInternal(ctx *gin.Context, message string) {
	ctx.JSON(http.StatusInternalServerError, gin.H{"message": message})
}
