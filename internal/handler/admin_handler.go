package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/folio/internal/service"
	"github.com/folio/internal/view"
	"github.com/gin-gonic/gin"
)

type consoleRequest struct {
	Command string `json:"command" binding:"required"`
}

// ListAdminLogs 返回最新的后台日志。
func (a *API) ListAdminLogs(c *gin.Context) {
	logs, err := a.logs.List(parsePositiveInt(c.Query("limit"), 0))
	if err != nil {
		a.respondInternal(c, err, "获取日志失败")
		return
	}

	items := make([]gin.H, 0, len(logs))
	for _, entry := range logs {
		items = append(items, adminLogPayload(entry))
	}
	respondOK(c, http.StatusOK, gin.H{"logs": items})
}

// ClearAdminLogs 清空后台日志，并留下一条清空记录。
func (a *API) ClearAdminLogs(c *gin.Context) {
	removed, err := a.logs.Clear()
	if err != nil {
		a.respondInternal(c, err, "清空日志失败")
		return
	}

	a.audit(c, service.ActionLogsClear, fmt.Sprintf("removed %d", removed), nil)
	respondOK(c, http.StatusOK, gin.H{"removed": removed})
}

// RunConsoleCommand 执行后台控制台命令。
func (a *API) RunConsoleCommand(c *gin.Context) {
	var req consoleRequest
	if !bindJSON(c, &req, "命令不能为空") {
		return
	}

	result, err := a.console.Execute(req.Command, currentUser(c).ID)
	if err != nil {
		if errors.Is(err, service.ErrUnknownCommand) {
			respondError(c, http.StatusBadRequest, "未知命令，输入 help 查看可用命令")
			return
		}
		a.respondInternal(c, err, "命令执行失败")
		return
	}

	if result.Mutated {
		a.audit(c, result.Action, result.Command, nil)
	}
	respondOK(c, http.StatusOK, gin.H{
		"command": result.Command,
		"output":  result.Lines,
	})
}

// ListSocialIcons 返回社交链接可选的图标。
func (a *API) ListSocialIcons(c *gin.Context) {
	options := view.SocialIconOptions()
	items := make([]gin.H, 0, len(options))
	for _, option := range options {
		items = append(items, gin.H{"key": option.Key, "label": option.Label})
	}
	respondOK(c, http.StatusOK, gin.H{"icons": items})
}

// audit 写入后台日志，失败只记录警告，不影响请求结果。
func (a *API) audit(c *gin.Context, action, detail string, changedKeys []string) {
	entry := service.AdminLogEntry{
		Action:      action,
		Detail:      detail,
		ChangedKeys: changedKeys,
		RemoteIP:    c.ClientIP(),
	}
	if user := currentUser(c); user != nil {
		entry.ActorID = user.ID
		entry.ActorEmail = user.Email
	}

	if err := a.logs.Record(entry); err != nil {
		a.logger.Warn().Err(err).Str("action", action).Msg("record admin log failed")
	}
}
