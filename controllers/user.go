package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"Scorekeep/middleware"
	"Scorekeep/models"
	"Scorekeep/models/postgres"
	"Scorekeep/utils"
	"Scorekeep/utils/apperr"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type UserLookup interface {
	FindByID(ctx context.Context, id uint) (*postgres.User, error)
	FindByUsername(ctx context.Context, username string) (*postgres.User, error)
}

type TokenSettings struct {
	Secret string
	TTL    time.Duration
}

// @Summary Logs a user in
// @Description Checks the password, opens a cookie session and returns a bearer token for the socket handshake
// @Tags auth
// @Accept x-www-form-urlencoded,json
// @Produce json
// @Param username formData string true "Username"
// @Param password formData string true "Password"
// @Success 200 {object} object{token=string,user=postgres.User}
// @Failure 400 {object} object{error=string}
// @Failure 401 {object} object{error=string}
// @Router /login [post]
func Login(users UserLookup, tokens TokenSettings) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.LoginRequest
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		//Minimum input sanitizing
		username := strings.TrimSpace(req.Username)
		if username == "" || strings.TrimSpace(req.Password) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Parameters can't be empty"})
			return
		}

		user, err := users.FindByUsername(c.Request.Context(), username)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password!"})
				return
			}
			utils.RespondError(c, err)
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password!"})
			return
		}

		session := sessions.Default(c)
		session.Set(middleware.SessionUserKey, user.ID)
		if err := session.Save(); err != nil {
			zap.S().Errorf("[LOGIN-ERROR] saving session for %s: %v", username, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "No session!"})
			return
		}

		token, err := middleware.GenerateToken(tokens.Secret, user.ID, user.Username, tokens.TTL)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		zap.S().Infof("[LOGIN] %s logged in", username)
		c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
	}
}

// @Summary Logs out
// @Description Clears the cookie session. Bearer tokens simply expire.
// @Tags auth
// @Produce json
// @Success 200 {object} object{message=string}
// @Failure 500 {object} object{error=string}
// @Router /auth/logout [delete]
// @Security ApiKeyAuth
func Logout(c *gin.Context) {
	session := sessions.Default(c)
	if session.Get(middleware.SessionUserKey) == nil {
		c.JSON(http.StatusOK, gin.H{"message": "No session to close"})
		return
	}

	session.Delete(middleware.SessionUserKey)
	if err := session.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}

// @Summary Current user
// @Tags auth
// @Produce json
// @Success 200 {object} postgres.User
// @Failure 401 {object} object{error=string}
// @Router /auth/me [get]
// @Security ApiKeyAuth
func Me(users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		user, err := users.FindByID(c.Request.Context(), userID)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}
