package tests

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestLogin(t *testing.T) {
	status, body := doRequest(t, "POST", "/api/auth/login", "", map[string]string{
		"email":    "user@example.com",
		"password": "userpass123",
	})
	expectStatus(t, status, fiber.StatusOK, body)

	assert.NotEmpty(t, body["token"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "user@example.com", user["email"])
	assert.Equal(t, "user", user["role"])
}

func TestLoginWrongPassword(t *testing.T) {
	status, body := doRequest(t, "POST", "/api/auth/login", "", map[string]string{
		"email":    "user@example.com",
		"password": "not-the-password",
	})
	expectStatus(t, status, fiber.StatusUnauthorized, body)
}

func TestLoginUnknownEmail(t *testing.T) {
	status, body := doRequest(t, "POST", "/api/auth/login", "", map[string]string{
		"email":    "nobody@example.com",
		"password": "whatever123",
	})
	expectStatus(t, status, fiber.StatusUnauthorized, body)
}

func TestGetProfile(t *testing.T) {
	status, body := doRequest(t, "GET", "/api/user/profile", userToken, nil)
	expectStatus(t, status, fiber.StatusOK, body)

	assert.Equal(t, "Regular User", body["full_name"])
	assert.Equal(t, "user@example.com", body["email"])
}

func TestGetProfileUnauthorized(t *testing.T) {
	status, body := doRequest(t, "GET", "/api/user/profile", "", nil)
	expectStatus(t, status, fiber.StatusUnauthorized, body)
}

func TestAdminRouteRequiresAdmin(t *testing.T) {
	status, body := doRequest(t, "GET", "/api/admin/users", userToken, nil)
	expectStatus(t, status, fiber.StatusForbidden, body)

	status, body = doRequest(t, "GET", "/api/admin/users", adminToken, nil)
	expectStatus(t, status, fiber.StatusOK, body)
}
