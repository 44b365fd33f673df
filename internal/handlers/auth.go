package handlers

import (
	"net/http"
	"strings"

	"emuhub/internal/apperr"
	"emuhub/internal/db"
	"emuhub/internal/middleware"
	"emuhub/internal/models"
	"emuhub/internal/services"
	"emuhub/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	mailService    *services.MailService
	captchaService *services.CaptchaService
}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{
		mailService:    services.NewMailService(),
		captchaService: services.NewCaptchaService(),
	}
}

// Captcha issues a fresh math problem and parks the answer in the session.
// type=reset uses a separate slot so signup and reset flows don't clobber
// each other.
func (h *AuthHandler) Captcha(c *gin.Context) {
	question, answer := h.captchaService.GenerateMathProblem()

	session := sessions.Default(c)
	if c.Query("type") == "reset" {
		session.Set("reset_captcha_answer", answer)
	} else {
		session.Set("captcha_answer", answer)
	}
	session.Save()

	c.JSON(http.StatusOK, gin.H{"captcha": question})
}

func (h *AuthHandler) createUser(username, email, password string) (*models.User, error) {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Username: username,
		Email:    email,
		Password: hash,
		Avatar:   utils.GetRandomEmoji(),
	}
	if err := db.DB.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
		Captcha  string `json:"captcha" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		FailValidation(c, err)
		return
	}

	session := sessions.Default(c)
	expected, ok := session.Get("captcha_answer").(int)
	session.Delete("captcha_answer")
	session.Save()
	if !ok || utils.StringToInt(req.Captcha) != expected {
		Fail(c, apperr.Validation("wrong captcha answer"))
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		username = strings.Split(req.Email, "@")[0]
	}

	user, err := h.createUser(username, req.Email, req.Password)
	if err != nil {
		Fail(c, apperr.Conflict("this email is already registered"))
		return
	}

	code := utils.GenerateRandomCode(6)
	user.VerifyCode = code
	db.DB.Save(user)
	h.mailService.SendActivationEmail(req.Email, code)

	c.JSON(http.StatusCreated, gin.H{
		"message": "account created, check your email for the activation code",
		"user":    user,
	})
}

func (h *AuthHandler) Activate(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
		Code  string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		FailValidation(c, err)
		return
	}

	var user models.User
	if err := db.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		Fail(c, apperr.NotFound("no account with that email"))
		return
	}
	if user.IsActivated {
		c.JSON(http.StatusOK, gin.H{"message": "account already activated"})
		return
	}
	if user.VerifyCode == "" || user.VerifyCode != req.Code {
		Fail(c, apperr.Validation("wrong activation code"))
		return
	}

	user.IsActivated = true
	user.VerifyCode = ""
	db.DB.Save(&user)

	session := sessions.Default(c)
	session.Set("user_id", user.ID)
	session.Save()

	c.JSON(http.StatusOK, gin.H{"message": "account activated", "user": user})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		FailValidation(c, err)
		return
	}

	var user models.User
	if err := db.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		Fail(c, apperr.AuthRequired("wrong email or password"))
		return
	}
	if !utils.CheckPasswordHash(req.Password, user.Password) {
		Fail(c, apperr.AuthRequired("wrong email or password"))
		return
	}
	if user.Status == models.StatusBanned {
		Fail(c, apperr.PermissionDenied("this account is banned"))
		return
	}
	if !user.IsActivated {
		Fail(c, apperr.PermissionDenied("account not activated, enter the code from your email"))
		return
	}

	session := sessions.Default(c)
	session.Set("user_id", user.ID)
	session.Save()

	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me reports the session's user plus their unread notification count.
func (h *AuthHandler) Me(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Fail(c, apperr.AuthRequired("not logged in"))
		return
	}
	unread := int64(0)
	if v, ok := c.Get(middleware.UnreadCountKey); ok {
		unread = v.(int64)
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "unread_count": unread})
}

func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email   string `json:"email" binding:"required,email"`
		Captcha string `json:"captcha" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		FailValidation(c, err)
		return
	}

	session := sessions.Default(c)
	expected, ok := session.Get("reset_captcha_answer").(int)
	session.Delete("reset_captcha_answer")
	session.Save()
	if !ok || utils.StringToInt(req.Captcha) != expected {
		Fail(c, apperr.Validation("wrong captcha answer"))
		return
	}

	// Same response either way, so the endpoint can't be used to probe for
	// registered addresses.
	var user models.User
	if err := db.DB.Where("email = ?", req.Email).First(&user).Error; err == nil {
		code := utils.GenerateRandomCode(6)
		user.VerifyCode = code
		db.DB.Save(&user)
		h.mailService.SendPasswordResetEmail(req.Email, code)
	}

	c.JSON(http.StatusOK, gin.H{"message": "if that email is registered, a reset code is on its way"})
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Code     string `json:"code" binding:"required"`
		Password string `json:"password" binding:"required,min=6"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		FailValidation(c, err)
		return
	}

	var user models.User
	if err := db.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		Fail(c, apperr.Validation("wrong or expired reset code"))
		return
	}
	if user.VerifyCode == "" || user.VerifyCode != req.Code {
		Fail(c, apperr.Validation("wrong or expired reset code"))
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		Fail(c, apperr.Internal(err))
		return
	}
	user.Password = hash
	user.VerifyCode = ""
	db.DB.Save(&user)

	c.JSON(http.StatusOK, gin.H{"message": "password reset, you can log in now"})
}
