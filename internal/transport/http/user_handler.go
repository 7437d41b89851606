package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fueltrack/api/internal/service"
	"github.com/fueltrack/api/internal/util"
)

// RegisterUserRoutes wires the profile endpoints under /v1/users/me. The
// email-change confirmation is public: it arrives from a mailed link.
func RegisterUserRoutes(e *echo.Echo, users *service.UserService, auth *service.AuthService) {
	e.GET("/v1/users/me/email/confirm/:token", func(c echo.Context) error {
		if err := auth.ConfirmEmailChange(c.Request().Context(), c.Param("token")); err != nil {
			return c.HTML(http.StatusBadRequest, emailChangeFailureHTML)
		}
		return c.HTML(http.StatusOK, emailChangeSuccessHTML)
	})

	g := e.Group("/v1/users/me", RequireAuth(auth))

	g.GET("", func(c echo.Context) error {
		identity, _ := CurrentIdentity(c)
		user, err := users.GetProfile(c.Request().Context(), identity.UserID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, toAuthUser(user))
	})

	g.PATCH("/name", func(c echo.Context) error {
		identity, _ := CurrentIdentity(c)
		var req UpdateNameRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, util.Error("bad body"))
		}
		if req.Name == "" {
			return c.JSON(http.StatusBadRequest, util.Error("name is required"))
		}
		user, err := users.UpdateName(c.Request().Context(), identity.UserID, req.Name)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, toAuthUser(user))
	})

	g.PATCH("/email", func(c echo.Context) error {
		identity, _ := CurrentIdentity(c)
		var req UpdateEmailRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, util.Error("bad body"))
		}
		if req.NewEmail == "" {
			return c.JSON(http.StatusBadRequest, util.Error("newEmail is required"))
		}
		if err := auth.RequestEmailChange(c.Request().Context(), identity.UserID, req.NewEmail); err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, util.Data("message",
			"A verification email was sent to "+req.NewEmail+". Confirm the link to change your email."))
	})

	g.PATCH("/password", func(c echo.Context) error {
		identity, _ := CurrentIdentity(c)
		var req UpdatePasswordRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, util.Error("bad body"))
		}
		if len(req.NewPassword) < minPasswordLength {
			return c.JSON(http.StatusBadRequest, util.Error("password must be at least 8 characters"))
		}
		if err := users.UpdatePassword(c.Request().Context(), identity.UserID, req.CurrentPassword, req.NewPassword); err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, util.OK("Password updated successfully."))
	})

	g.DELETE("", func(c echo.Context) error {
		identity, _ := CurrentIdentity(c)
		var req DeleteAccountRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, util.Error("bad body"))
		}
		if err := users.DeleteAccount(c.Request().Context(), identity.UserID, req.Password); err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, util.OK("Account deleted."))
	})
}
