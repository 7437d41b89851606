package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fueltrack/api/internal/domain"
	"github.com/fueltrack/api/internal/service"
	"github.com/fueltrack/api/internal/util"
)

const minPasswordLength = 8

// RegisterAuthRoutes wires the credential endpoints under /v1/auth.
func RegisterAuthRoutes(e *echo.Echo, auth *service.AuthService) {
	g := e.Group("/v1/auth")

	g.POST("/register", func(c echo.Context) error {
		var req RegisterRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, util.Error("bad body"))
		}
		if req.Email == "" {
			return c.JSON(http.StatusBadRequest, util.Error("email is required"))
		}
		if len(req.Password) < minPasswordLength {
			return c.JSON(http.StatusBadRequest, util.Error("password must be at least 8 characters"))
		}
		user, err := auth.Register(c.Request().Context(), req.Email, req.Password, req.Name)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusCreated, echo.Map{
			"ok":      true,
			"message": "Account created. Check your inbox to verify your email.",
			"user":    toAuthUser(user),
		})
	})

	g.POST("/login", func(c echo.Context) error {
		var req LoginRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, util.Error("bad body"))
		}
		result, err := auth.Login(c.Request().Context(), req.Email, req.Password)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, LoginResponse{
			Ok:           true,
			AccessToken:  result.AccessToken,
			RefreshToken: result.RefreshToken,
			User:         toAuthUser(result.User),
		})
	})

	g.GET("/me", func(c echo.Context) error {
		identity, ok := CurrentIdentity(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
		}
		return c.JSON(http.StatusOK, MeResponse{UserID: identity.UserID.String(), Email: identity.Email})
	}, RequireAuth(auth))

	g.POST("/verify-email", func(c echo.Context) error {
		var req VerifyEmailRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, util.Error("bad body"))
		}
		if err := auth.VerifyEmail(c.Request().Context(), req.Token); err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, util.OK("Email verified successfully."))
	})

	g.GET("/verify-email/confirm/:token", func(c echo.Context) error {
		if err := auth.VerifyEmail(c.Request().Context(), c.Param("token")); err != nil {
			return c.HTML(http.StatusBadRequest, verifyFailureHTML)
		}
		return c.HTML(http.StatusOK, verifySuccessHTML)
	})

	g.POST("/forgot-password", func(c echo.Context) error {
		var req ForgotPasswordRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, util.Error("bad body"))
		}
		if err := auth.ForgotPassword(c.Request().Context(), req.Email); err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, util.OK("If the email exists, you will receive reset instructions."))
	})

	g.POST("/reset-password", func(c echo.Context) error {
		var req ResetPasswordRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, util.Error("bad body"))
		}
		if len(req.NewPassword) < minPasswordLength {
			return c.JSON(http.StatusBadRequest, util.Error("password must be at least 8 characters"))
		}
		if err := auth.ResetPassword(c.Request().Context(), req.Token, req.NewPassword); err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, util.OK("Password updated successfully."))
	})

	g.GET("/reset-password/confirm/:token", func(c echo.Context) error {
		return c.HTML(http.StatusOK, resetFormHTML(c.Param("token")))
	})

	g.POST("/reset-password/confirm/:token", func(c echo.Context) error {
		newPassword := c.FormValue("newPassword")
		if len(newPassword) < minPasswordLength {
			return c.HTML(http.StatusBadRequest, resetFailureHTML)
		}
		if err := auth.ResetPassword(c.Request().Context(), c.Param("token"), newPassword); err != nil {
			return c.HTML(http.StatusBadRequest, resetFailureHTML)
		}
		return c.HTML(http.StatusOK, resetSuccessHTML)
	})

	g.POST("/refresh", func(c echo.Context) error {
		var req RefreshRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, util.Error("bad body"))
		}
		accessToken, err := auth.Refresh(c.Request().Context(), req.RefreshToken)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, RefreshResponse{Ok: true, AccessToken: accessToken})
	})

	g.POST("/logout", func(c echo.Context) error {
		var req RefreshRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, util.Error("bad body"))
		}
		if err := auth.Logout(c.Request().Context(), req.RefreshToken); err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, util.OK("Logged out."))
	})
}

func toAuthUser(user *domain.User) AuthUser {
	return AuthUser{
		ID:         user.ID.String(),
		Email:      user.Email,
		Name:       user.Name,
		AvatarURL:  user.AvatarURL,
		IsVerified: user.IsVerified,
		CreatedAt:  user.CreatedAt,
	}
}

// respondError maps domain errors onto transport codes. Anything unmapped is
// a persistence or infrastructure fault and stays opaque to the client.
func respondError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrTokenUsed),
		errors.Is(err, service.ErrTokenExpired),
		errors.Is(err, service.ErrUserNotFound):
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrEmailNotVerified),
		errors.Is(err, service.ErrInvalidRefreshToken),
		errors.Is(err, service.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, util.Error(err.Error()))
	case errors.Is(err, service.ErrRateLimited):
		return c.JSON(http.StatusTooManyRequests, util.Error(err.Error()))
	default:
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, util.Error("internal error"))
	}
}
