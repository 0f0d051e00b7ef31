package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/taskboard-api/internal/application"
	"github.com/oksasatya/taskboard-api/internal/domain/entity"
	"github.com/oksasatya/taskboard-api/pkg/helpers"
	"github.com/oksasatya/taskboard-api/pkg/response"
)

type AuthHandler struct {
	Service *application.AuthService
	Logger  *logrus.Logger
}

func NewAuthHandler(service *application.AuthService, logger *logrus.Logger) *AuthHandler {
	if logger == nil {
		logger = helpers.NewNopLogger()
	}
	return &AuthHandler{Service: service, Logger: logger}
}

func clientIP(c *gin.Context) string {
	if ip := c.GetString("real_ip"); ip != "" {
		return ip
	}
	return c.ClientIP()
}

type registerRequest struct {
	FullName   string `json:"fullName" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,pwd"`
	Profession string `json:"profession" binding:"required,profession"`
	Gender     string `json:"gender" binding:"required"`
	Age        int    `json:"age" binding:"required,gt=0"`
}

// Register POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	err := h.Service.Register(c.Request.Context(), application.RegisterInput{
		FullName:   req.FullName,
		Email:      req.Email,
		Password:   req.Password,
		Profession: req.Profession,
		Gender:     req.Gender,
		Age:        req.Age,
	})
	if err != nil {
		writeError(c, h.Logger, err, nil)
		return
	}
	response.Message(c, http.StatusCreated, "User registered successfully. Please check your email for the verification code.")
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Message   string            `json:"message"`
	Token     string            `json:"token"`
	ExpiresAt int64             `json:"expiresAt"`
	User      entity.PublicUser `json:"user"`
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	meta := application.LoginMeta{IP: clientIP(c), UserAgent: c.GetHeader("User-Agent")}
	res, err := h.Service.Login(c.Request.Context(), req.Email, req.Password, meta)
	if err != nil {
		writeError(c, h.Logger, err, nil)
		return
	}
	response.JSON(c, http.StatusOK, loginResponse{
		Message:   "Login successful",
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt.Unix(),
		User:      res.User,
	})
}

type verifyEmailRequest struct {
	Email string `json:"email" binding:"required"`
	OTP   string `json:"otp" binding:"required"`
}

// VerifyEmail POST /api/auth/verify-email
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req verifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.Service.VerifyEmail(c.Request.Context(), req.Email, req.OTP); err != nil {
		writeError(c, h.Logger, err, statusOverrides{application.ErrUserNotFound: http.StatusBadRequest})
		return
	}
	response.Message(c, http.StatusOK, "Email verified successfully")
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

// ForgotPassword POST /api/auth/forgot-password
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.Service.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		writeError(c, h.Logger, err, nil)
		return
	}
	response.Message(c, http.StatusOK, "Password reset code sent to your email")
}

type resetPasswordRequest struct {
	Email    string `json:"email" binding:"required"`
	OTP      string `json:"otp" binding:"required"`
	Password string `json:"password" binding:"required,pwd"`
}

type resetPasswordResponse struct {
	Message   string `json:"message"`
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

// ResetPassword POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	res, err := h.Service.ResetPassword(c.Request.Context(), req.Email, req.OTP, req.Password)
	if err != nil {
		writeError(c, h.Logger, err, nil)
		return
	}
	response.JSON(c, http.StatusOK, resetPasswordResponse{
		Message:   "Password reset successful",
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt.Unix(),
	})
}
