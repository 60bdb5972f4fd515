// Package response 提供统一的 HTTP 响应封装
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope 统一响应结构
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Success 返回成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{
		Success: true,
		Data:    data,
	})
}

// SuccessWithMessage 返回带提示信息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Created 返回创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{
		Success: true,
		Data:    data,
	})
}

// ErrorWithStatus 返回带错误码的失败响应
func ErrorWithStatus(c *gin.Context, status int, message string, code string) {
	c.JSON(status, Envelope{
		Success: false,
		Message: message,
		Error:   code,
	})
}

// AbortWithStatus 中断请求并返回失败响应
func AbortWithStatus(c *gin.Context, status int, message string, code string) {
	c.AbortWithStatusJSON(status, Envelope{
		Success: false,
		Message: message,
		Error:   code,
	})
}

// AbortWithStatusData 中断请求并返回携带数据的失败响应
func AbortWithStatusData(c *gin.Context, status int, message string, code string, data interface{}) {
	c.AbortWithStatusJSON(status, Envelope{
		Success: false,
		Message: message,
		Data:    data,
		Error:   code,
	})
}
