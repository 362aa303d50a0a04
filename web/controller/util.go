package controller

import (
	"net/http"

	"confighub/logger"

	"github.com/gin-gonic/gin"
)

type apiResponse struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg"`
	Obj     any    `json:"obj,omitempty"`
}

func jsonMsg(c *gin.Context, msg string, err error) {
	jsonMsgObj(c, msg, nil, err)
}

func jsonObj(c *gin.Context, obj any, err error) {
	jsonMsgObj(c, "", obj, err)
}

func jsonMsgObj(c *gin.Context, msg string, obj any, err error) {
	resp := apiResponse{Success: true, Msg: msg, Obj: obj}
	if err != nil {
		resp.Success = false
		resp.Msg = msg + ": " + err.Error()
		logger.Warning(resp.Msg)
	}
	c.JSON(http.StatusOK, resp)
}
