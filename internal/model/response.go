package model

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/fisker/salesflow/pkg/logger"
)

type Response struct {
	Success bool        `json:"success"`
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

func Success(data interface{}) Response {
	return Response{
		Success: true,
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

func Error(code int, message string) Response {
	return Response{
		Code:    code,
		Message: message,
	}
}

// HandleError 统一错误处理函数，记录详细日志并返回错误响应
// message 为返回给调用方的信息，未提供时使用 err.Error()
func HandleError(c *gin.Context, code int, err error, message ...string) {
	requestMethod := c.Request.Method
	requestPath := c.Request.URL.Path
	requestQuery := c.Request.URL.RawQuery

	userID := ""
	if uid, exists := c.Get("user_id"); exists {
		userID = fmt.Sprintf("%v", uid)
	}

	fullURL := requestPath
	if requestQuery != "" {
		fullURL = fmt.Sprintf("%s?%s", requestPath, requestQuery)
	}

	publicMsg := err.Error()
	if len(message) > 0 && message[0] != "" {
		publicMsg = message[0]
	}

	logf := logger.Warnf
	if code >= 500 {
		logf = logger.Errorf
	}
	logf(
		"Request error [%d]: %v\n"+
			"  Request: %s %s\n"+
			"  Client IP: %s\n"+
			"  Request ID: %s\n"+
			"  User ID: %s",
		code,
		err,
		requestMethod,
		fullURL,
		c.ClientIP(),
		c.GetString("request_id"),
		userID,
	)

	c.JSON(code, Error(code, publicMsg))
}
