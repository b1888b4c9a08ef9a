package handlers

import (
	"errors"
	"io"
	"net/http"

	"hive_schedule/internal/logger"
	"hive_schedule/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	statusVerified  = "verified"
	statusRefreshed = "refreshed"
)

// LoginRequest optionally replaces the configured Hive account.
type LoginRequest struct {
	Username string `json:"username,omitempty" example:"me@example.com"`
	Password string `json:"password,omitempty"`
}

// MFARequest carries the code delivered by SMS.
type MFARequest struct {
	Code string `json:"code" binding:"required" example:"123456"`
}

// @Summary      Hive session status
// @Tags         session
// @Produce      json
// @Success      200  {object}  models.SessionStatus
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/session [get]
// @Security     BearerAuth
func (h *Handler) getSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Session.Status())
}

// @Summary      Log in to Hive
// @Description  Without a body the configured account is used. outcome is authenticated or challenge_required.
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        body  body      LoginRequest  false  "Account to switch to"
// @Success      200   {object}  map[string]interface{}  "outcome, session"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/session/login [post]
// @Security     BearerAuth
func (h *Handler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}

	var cred *models.Credential
	if req.Username != "" || req.Password != "" {
		if req.Username == "" || req.Password == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + "username and password go together"})
			return
		}
		cred = &models.Credential{Username: req.Username, Password: req.Password}
		h.log.Infow("session_credentials_replaced", "username", req.Username, "password", logger.Redact(req.Password))
	}

	out, err := h.services.Session.Login(c.Request.Context(), cred)
	if err != nil {
		h.respondError(c, "session_login_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcome": out.String(), "session": h.services.Session.Status()})
}

// @Summary      Answer the SMS challenge
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        body  body      MFARequest  true  "Verification code"
// @Success      200   {object}  map[string]interface{}  "status, session"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /api/v1/session/mfa [post]
// @Security     BearerAuth
func (h *Handler) verifyMFA(c *gin.Context) {
	var req MFARequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	if err := h.services.Session.VerifyMFACode(c.Request.Context(), req.Code); err != nil {
		h.respondError(c, "session_mfa_failed", err, "code", logger.Redact(req.Code))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusVerified, "session": h.services.Session.Status()})
}

// @Summary      Renew the Hive token now
// @Tags         session
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status, session"
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/session/refresh [post]
// @Security     BearerAuth
func (h *Handler) refreshSession(c *gin.Context) {
	if err := h.services.Session.RefreshToken(c.Request.Context()); err != nil {
		h.respondError(c, "session_refresh_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusRefreshed, "session": h.services.Session.Status()})
}
