package handler

import (
	"errors"
	"net/http"

	"github.com/folio/internal/service"
	"github.com/gin-gonic/gin"
)

const maxUsersPerPage = 100

type profileRequest struct {
	Name      *string `json:"name"`
	Bio       *string `json:"bio"`
	AvatarURL *string `json:"avatarUrl"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

type adminUserRequest struct {
	Name     *string `json:"name"`
	IsAdmin  *bool   `json:"isAdmin"`
	Verified *bool   `json:"verified"`
}

// GetUserProfile 返回用户的公开资料；已登录时附带是否已关注。
func (a *API) GetUserProfile(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的用户ID")
		return
	}

	user, err := a.users.Get(id)
	if err != nil {
		a.handleUserError(c, err)
		return
	}

	payload := publicUserPayload(*user)
	if viewerID, ok := sessionUserID(c); ok && viewerID != user.ID {
		following, err := a.follows.IsFollowing(viewerID, user.ID)
		if err != nil {
			a.respondInternal(c, err, "获取关注状态失败")
			return
		}
		payload["isFollowing"] = following
	}
	respondOK(c, http.StatusOK, gin.H{"user": payload})
}

// UpdateMyProfile 修改当前用户的公开资料。
func (a *API) UpdateMyProfile(c *gin.Context) {
	var req profileRequest
	if !bindJSON(c, &req, "请求格式错误") {
		return
	}

	user, err := a.users.UpdateProfile(currentUser(c).ID, service.ProfileInput{
		Name:      req.Name,
		Bio:       req.Bio,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		a.handleUserError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"user": privateUserPayload(*user)})
}

// ChangeMyPassword 校验旧密码后修改密码。
func (a *API) ChangeMyPassword(c *gin.Context) {
	var req changePasswordRequest
	if !bindJSON(c, &req, "当前密码和新密码不能为空") {
		return
	}

	if err := a.auth.ChangePassword(currentUser(c).ID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			respondError(c, http.StatusUnauthorized, "当前密码错误")
			return
		}
		a.handleAuthError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "密码已更新"})
}

// FollowUser 关注指定用户，重复关注不会报错。
func (a *API) FollowUser(c *gin.Context) {
	a.toggleFollow(c, true)
}

// UnfollowUser 取消关注指定用户。
func (a *API) UnfollowUser(c *gin.Context) {
	a.toggleFollow(c, false)
}

func (a *API) toggleFollow(c *gin.Context, follow bool) {
	targetID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的用户ID")
		return
	}
	viewer := currentUser(c)

	var changed bool
	if follow {
		changed, err = a.follows.Follow(viewer.ID, targetID)
	} else {
		changed, err = a.follows.Unfollow(viewer.ID, targetID)
	}
	if err != nil {
		a.handleUserError(c, err)
		return
	}

	target, err := a.users.Get(targetID)
	if err != nil {
		a.handleUserError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"following":      follow,
		"changed":        changed,
		"followersCount": target.FollowersCount,
	})
}

// ListFollowers 返回关注了该用户的人。
func (a *API) ListFollowers(c *gin.Context) {
	a.listFollowEdges(c, a.follows.Followers)
}

// ListFollowing 返回该用户关注的人。
func (a *API) ListFollowing(c *gin.Context) {
	a.listFollowEdges(c, a.follows.Following)
}

func (a *API) listFollowEdges(c *gin.Context, fetch func(userID uint, page, perPage int) (*service.UserListResult, error)) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的用户ID")
		return
	}

	result, err := fetch(id, parsePositiveInt(c.Query("page"), 1), clampPerPage(c.Query("per_page"), 20, maxUsersPerPage))
	if err != nil {
		a.handleUserError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"users":      usersPayload(result.Users, false),
		"pagination": paginationPayload(result.Page, result.PerPage, result.TotalPages, result.Total),
	})
}

// ListUsers 后台账号列表。
func (a *API) ListUsers(c *gin.Context) {
	result, err := a.users.List(service.UserFilter{
		Search:  c.Query("search"),
		Page:    parsePositiveInt(c.Query("page"), 1),
		PerPage: clampPerPage(c.Query("per_page"), 20, maxUsersPerPage),
	})
	if err != nil {
		a.respondInternal(c, err, "获取用户列表失败")
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"users":      usersPayload(result.Users, true),
		"pagination": paginationPayload(result.Page, result.PerPage, result.TotalPages, result.Total),
	})
}

// AdminUpdateUser 修改账号的姓名、管理员标记与验证状态。
func (a *API) AdminUpdateUser(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的用户ID")
		return
	}

	var req adminUserRequest
	if !bindJSON(c, &req, "请求格式错误") {
		return
	}

	if req.IsAdmin != nil && !*req.IsAdmin && id == currentUser(c).ID {
		respondError(c, http.StatusBadRequest, "不能取消自己的管理员权限")
		return
	}

	user, err := a.users.AdminUpdate(id, service.AdminUserInput{
		Name:     req.Name,
		IsAdmin:  req.IsAdmin,
		Verified: req.Verified,
	})
	if err != nil {
		a.handleUserError(c, err)
		return
	}

	a.audit(c, service.ActionUserUpdate, user.Email, nil)
	respondOK(c, http.StatusOK, gin.H{"user": privateUserPayload(*user)})
}

// AdminDeleteUser 删除账号及其关注关系。
func (a *API) AdminDeleteUser(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的用户ID")
		return
	}
	if id == currentUser(c).ID {
		respondError(c, http.StatusBadRequest, "不能删除当前登录的账号")
		return
	}

	user, err := a.users.Get(id)
	if err != nil {
		a.handleUserError(c, err)
		return
	}
	if err := a.users.Delete(id); err != nil {
		a.handleUserError(c, err)
		return
	}

	a.audit(c, service.ActionUserDelete, user.Email, nil)
	respondOK(c, http.StatusOK, gin.H{"message": "用户已删除"})
}

func (a *API) handleUserError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		respondError(c, http.StatusNotFound, "用户不存在")
	case errors.Is(err, service.ErrSelfFollow):
		respondError(c, http.StatusBadRequest, "不能关注自己")
	case errors.Is(err, service.ErrUserInvalidInput):
		respondError(c, http.StatusBadRequest, "姓名不能为空")
	case errors.Is(err, service.ErrUserHasPosts):
		respondError(c, http.StatusConflict, "该用户仍有文章，无法删除")
	default:
		a.respondInternal(c, err, "处理用户请求失败")
	}
}
