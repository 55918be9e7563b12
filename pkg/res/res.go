package res

import (
	"github.com/gin-gonic/gin"
)

// ErrorResponse представляет формат JSON-ответа для ошибок.
type ErrorResponse struct {
	Error     string `json:"error"`                // Сообщение об ошибке (для пользователя)
	ErrorCode int    `json:"error_code,omitempty"` // Код ошибки (для программной обработки)
	Details   any    `json:"details,omitempty"`    // Детали ошибки (например, ошибки валидации)
}

// Result ответ операций, вызываемых мобильным клиентом: флаг успеха и сообщение либо ошибка.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// JsonResponse отправляет JSON-ответ с заданным статусом.
func JsonResponse(c *gin.Context, data any, status int) {
	c.JSON(status, data)
}

// Success отправляет {success:true, message}
func Success(c *gin.Context, status int, message string) {
	JsonResponse(c, Result{Success: true, Message: message}, status)
}

// Failure отправляет {success:false, error}
func Failure(c *gin.Context, status int, message string) {
	JsonResponse(c, Result{Success: false, Error: message}, status)
}
