package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/apperr"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/middleware"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/models"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/service"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"omitempty,oneof=admin user"`
}

type userResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Image     *string   `json:"image"`
	CreatedAt time.Time `json:"createdAt"`
}

func newUserResponse(user models.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      string(user.Role),
		Image:     user.ImageURL,
		CreatedAt: user.CreatedAt,
	}
}

func (h HandlerSet) RegisterUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err))
		return
	}

	current, loggedIn := middleware.CurrentUser(c)
	byAdmin := loggedIn && current.Role == models.UserRoleAdmin

	result, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		Role:      req.Role,
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
		ByAdmin:   byAdmin,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	// An admin creating an account keeps their own session.
	if byAdmin {
		respond(c, http.StatusCreated, "User registered successfully", newUserResponse(result.User))
		return
	}
	h.sendAuthResponse(c, http.StatusCreated, "User registered successfully", result)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), service.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.sendAuthResponse(c, http.StatusOK, "Login successful", result)
}

func (h HandlerSet) sendAuthResponse(c *gin.Context, status int, message string, result service.AuthResult) {
	maxAge := int(time.Until(result.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.Security.CookieName, result.Token, maxAge, "/", "", h.cfg.Security.SecureCookie, true)

	c.JSON(status, gin.H{
		"success":   true,
		"message":   message,
		"token":     result.Token,
		"expiresAt": result.ExpiresAt,
		"user":      newUserResponse(result.User),
	})
}

// Logout always clears the cookie; a session is deleted only when one was presented.
func (h HandlerSet) Logout(c *gin.Context) {
	if claims, ok := middleware.Claims(c); ok {
		if err := h.auth.Logout(c.Request.Context(), claims.SessionID); err != nil {
			h.fail(c, err)
			return
		}
	}
	c.SetCookie(h.cfg.Security.CookieName, "", -1, "/", "", h.cfg.Security.SecureCookie, true)

	if wantsHTML(c) {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out successfully"})
}

func (h HandlerSet) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		h.fail(c, apperr.Unauthorized("Access denied. No token provided."))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": newUserResponse(user)})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6"`
}

func (h HandlerSet) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err))
		return
	}
	user, _ := middleware.CurrentUser(c)
	claims, _ := middleware.Claims(c)

	err := h.auth.ChangePassword(c.Request.Context(), service.ChangePasswordInput{
		UserID:          user.ID,
		SessionID:       claims.SessionID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password changed successfully"})
}

func (h HandlerSet) UploadAvatar(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		h.fail(c, apperr.Validation("Image file is required",
			apperr.FieldError{Field: "file", Message: "is required"}))
		return
	}
	defer file.Close()

	updated, err := h.avatars.Upload(c.Request.Context(), service.AvatarInput{User: user, File: file})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Profile image updated",
		"user":    newUserResponse(updated),
	})
}
