package handler

import (
	"net/http"
	"testing"

	"github.com/folio/internal/db"
	"github.com/stretchr/testify/require"
)

func TestRegisterStartsSession(t *testing.T) {
	server := setupHandlerTest(t)
	cl := server.client()

	payload := cl.mustDo(http.MethodPost, "/api/auth/register", map[string]string{
		"email":    "new@example.com",
		"password": "password123",
		"name":     "Newcomer",
	}, http.StatusCreated)
	require.Equal(t, true, payload["success"])
	user := payload["user"].(map[string]interface{})
	require.Equal(t, "new@example.com", user["email"])
	require.Equal(t, false, user["verified"])

	me := cl.mustDo(http.MethodGet, "/api/auth/me", nil, http.StatusOK)
	require.Equal(t, "new@example.com", me["user"].(map[string]interface{})["email"])
	require.Equal(t, false, me["adminSession"])

	status, dup := server.client().do(http.MethodPost, "/api/auth/register", map[string]string{
		"email":    "NEW@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, false, dup["success"])
	require.NotEmpty(t, dup["error"])
}

func TestRegisterValidation(t *testing.T) {
	server := setupHandlerTest(t)
	cl := server.client()

	status, _ := cl.do(http.MethodPost, "/api/auth/register", map[string]string{"email": "a@example.com"})
	require.Equal(t, http.StatusBadRequest, status)

	status, _ = cl.do(http.MethodPost, "/api/auth/register", map[string]string{"email": "a@example.com", "password": "short"})
	require.Equal(t, http.StatusBadRequest, status)

	status, _ = cl.do(http.MethodPost, "/api/auth/register", map[string]string{"email": "nope", "password": "password123"})
	require.Equal(t, http.StatusBadRequest, status)
}

func TestLoginRejectsWrongPasswordAndUnknownEmailAlike(t *testing.T) {
	server := setupHandlerTest(t)
	server.createUser("member@example.com", "password123", false)
	cl := server.client()

	status, wrong := cl.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "member@example.com", "password": "wrong-password"})
	require.Equal(t, http.StatusUnauthorized, status)

	status, unknown := cl.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "ghost@example.com", "password": "password123"})
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, wrong["error"], unknown["error"])

	status, _ = cl.do(http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusUnauthorized, status)

	cl.mustDo(http.MethodPost, "/api/auth/login", map[string]string{"email": "member@example.com", "password": "password123"}, http.StatusOK)
	cl.mustDo(http.MethodGet, "/api/auth/me", nil, http.StatusOK)

	cl.mustDo(http.MethodPost, "/api/auth/logout", nil, http.StatusOK)
	status, _ = cl.do(http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestAdminLoginRequiresMasterKey(t *testing.T) {
	server := setupHandlerTest(t)
	server.createUser("admin@example.com", "admin-password", true)
	server.createUser("member@example.com", "password123", false)
	cl := server.client()

	status, _ := cl.do(http.MethodPost, "/api/auth/admin/login", map[string]string{
		"email": "admin@example.com", "password": "admin-password", "masterKey": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, status)

	status, _ = cl.do(http.MethodPost, "/api/auth/admin/login", map[string]string{
		"email": "member@example.com", "password": "password123", "masterKey": testMasterKey,
	})
	require.Equal(t, http.StatusForbidden, status)

	status, _ = cl.do(http.MethodGet, "/api/admin/content", nil)
	require.Equal(t, http.StatusUnauthorized, status)

	cl.mustDo(http.MethodPost, "/api/auth/admin/login", map[string]string{
		"email": "admin@example.com", "password": "admin-password", "masterKey": testMasterKey,
	}, http.StatusOK)
	cl.mustDo(http.MethodGet, "/api/admin/content", nil, http.StatusOK)

	var logs []db.AdminLog
	require.NoError(t, server.db.Find(&logs).Error)
	require.Len(t, logs, 1)
	require.Equal(t, "admin.login", logs[0].Action)
}

func TestPlainLoginDoesNotGrantAdminAccess(t *testing.T) {
	server := setupHandlerTest(t)
	server.createUser("admin@example.com", "admin-password", true)
	cl := server.client()

	cl.mustDo(http.MethodPost, "/api/auth/login", map[string]string{
		"email": "admin@example.com", "password": "admin-password",
	}, http.StatusOK)

	status, payload := cl.do(http.MethodGet, "/api/admin/content", nil)
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, false, payload["success"])
}

func TestVerifyAndPasswordResetFlow(t *testing.T) {
	server := setupHandlerTest(t)
	cl := server.client()

	cl.mustDo(http.MethodPost, "/api/auth/register", map[string]string{
		"email": "flow@example.com", "password": "password123",
	}, http.StatusCreated)

	var user db.User
	require.NoError(t, server.db.Where("email = ?", "flow@example.com").First(&user).Error)

	verified := cl.mustDo(http.MethodGet, "/api/auth/verify?token="+user.VerificationToken, nil, http.StatusOK)
	require.Equal(t, true, verified["user"].(map[string]interface{})["verified"])

	status, _ := cl.do(http.MethodGet, "/api/auth/verify?token="+user.VerificationToken, nil)
	require.Equal(t, http.StatusBadRequest, status)

	cl.mustDo(http.MethodPost, "/api/auth/forgot", map[string]string{"email": "ghost@example.com"}, http.StatusOK)
	cl.mustDo(http.MethodPost, "/api/auth/forgot", map[string]string{"email": "flow@example.com"}, http.StatusOK)

	require.NoError(t, server.db.First(&user, user.ID).Error)
	require.NotEmpty(t, user.ResetToken)

	cl.mustDo(http.MethodPost, "/api/auth/reset", map[string]string{
		"token": user.ResetToken, "password": "brand-new-password",
	}, http.StatusOK)

	cl.mustDo(http.MethodPost, "/api/auth/login", map[string]string{
		"email": "flow@example.com", "password": "brand-new-password",
	}, http.StatusOK)
}

func TestDeletedUserSessionIsRejected(t *testing.T) {
	server := setupHandlerTest(t)
	user := server.createUser("gone@example.com", "password123", false)
	cl := server.client()

	cl.mustDo(http.MethodPost, "/api/auth/login", map[string]string{"email": user.Email, "password": "password123"}, http.StatusOK)
	require.NoError(t, server.db.Unscoped().Delete(&user).Error)

	status, _ := cl.do(http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusUnauthorized, status)
}
