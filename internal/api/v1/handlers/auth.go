package handlers

import (
	"fmt"
	"time"

	"taskhub/internal/config"
	"taskhub/pkg/logger"
	"taskhub/pkg/token"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// sessionTTL berlaku untuk claim exp di token maupun max-age cookie.
const sessionTTL = time.Hour

// issueToken membuat session token JWT yang terikat ke satu user.
// Expiry ditanam langsung di dalam token, bukan hanya di cookie.
func issueToken(userID int) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(sessionTTL).Unix(),
	})
	return t.SignedString(config.SecretKey)
}

// setSessionCookie memasang cookie session yang tidak bisa dibaca script.
func setSessionCookie(c *fiber.Ctx, tokenString string) {
	c.Cookie(&fiber.Cookie{
		Name:     "jwt",
		Value:    tokenString,
		Path:     "/",
		Expires:  time.Now().Add(sessionTTL),
		MaxAge:   int(sessionTTL.Seconds()),
		HTTPOnly: true,
	})
}

func clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     "jwt",
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour),
		MaxAge:   -1,
		HTTPOnly: true,
	})
}

// Auth handlers
func Signup(c *fiber.Ctx) error {
	// struct SignupRequest menerima inputan dari user
	type SignupRequest struct {
		Name     string `json:"name" validate:"required"`
		Username string `json:"username" validate:"required,email"`
		Password string `json:"password" validate:"required,min=6"`
	}

	var req SignupRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in signup", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
			"success": false,
			"status":  400,
		})
	}

	// Validasi dengan validator
	if err := config.Validate.Struct(req); err != nil {
		logger.AuditLogger.Warn("Validation error during signup", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Validation error",
			"errors":  err.Error(),
			"success": false,
			"status":  400,
		})
	}

	// Hash the password using bcrypt with default cost
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.ErrorLogger.Error("Error hashing password", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error hashing password",
			"success": false,
			"status":  500,
		})
	}

	// Insert data user ke dalam database.
	// Jika username sudah ada (unique violation), kembalikan 409.
	var userID int
	err = config.DB.QueryRow(
		"INSERT INTO users (name, username, password) VALUES ($1, $2, $3) RETURNING id",
		req.Name, req.Username, string(hashedPassword)).Scan(&userID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" {
				logger.SecurityLogger.Warn("Duplicate username", zap.String("username", req.Username))
				return c.Status(409).JSON(fiber.Map{
					"message": "Username already exists",
					"success": false,
					"status":  409,
				})
			}
		}
		logger.ErrorLogger.Error("Error creating user", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error creating user",
			"success": false,
			"status":  500,
		})
	}

	tokenString, err := issueToken(userID)
	if err != nil {
		logger.ErrorLogger.Error("Error generating token", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error generating token",
			"success": false,
			"status":  500,
		})
	}
	setSessionCookie(c, tokenString)

	// Kirim welcome email, gagal kirim tidak membatalkan signup
	go func(to, name string) {
		body := fmt.Sprintf("Welcome, %s! Your account has been created successfully.", name)
		if err := config.Mailer.Send(to, "Welcome to TaskHub", body); err != nil {
			logger.ErrorLogger.Error("Error sending welcome email", zap.Error(err))
		}
	}(req.Username, req.Name)

	logger.AuditLogger.Info("User registered successfully", zap.Int("user_id", userID))
	return c.Status(201).JSON(fiber.Map{
		"message": "User created successfully",
		"success": true,
		"status":  201,
		"data": fiber.Map{
			"user_id": userID,
			"token":   tokenString,
		},
	})
}

// fungsi login dengan menggunakan JSON Web Token (JWT)
func Login(c *fiber.Ctx) error {
	type LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in login", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
			"success": false,
			"status":  400,
		})
	}

	if err := config.Validate.Struct(req); err != nil {
		logger.AuditLogger.Warn("Validation error during login", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Validation error",
			"errors":  err.Error(),
			"success": false,
			"status":  400,
		})
	}

	var user struct {
		ID       int
		Password string
	}

	// User tidak ditemukan dan password salah harus menghasilkan
	// response yang sama persis, supaya username tidak bisa di-enumerate.
	err := config.DB.QueryRow(
		"SELECT id, password FROM users WHERE username = $1",
		req.Username).Scan(&user.ID, &user.Password)
	if err != nil {
		logger.SecurityLogger.Warn("Login for unknown user", zap.String("username", req.Username))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid username or password",
			"success": false,
			"status":  400,
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		logger.SecurityLogger.Warn("Invalid password", zap.String("username", req.Username))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid username or password",
			"success": false,
			"status":  400,
		})
	}

	tokenString, err := issueToken(user.ID)
	if err != nil {
		logger.ErrorLogger.Error("Error generating token", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error generating token",
			"success": false,
			"status":  500,
		})
	}
	setSessionCookie(c, tokenString)

	logger.AuditLogger.Info("Login success", zap.Int("user_id", user.ID))
	return c.JSON(fiber.Map{
		"message": "Login success",
		"success": true,
		"status":  200,
		"data": fiber.Map{
			"user_id": user.ID,
			"token":   tokenString,
		},
	})
}

// Verify memastikan token masih valid DAN user-nya masih ada di database.
// Token milik user yang sudah dihapus tetap harus ditolak.
func Verify(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	var id int
	err := config.DB.QueryRow("SELECT id FROM users WHERE id = $1", userID).Scan(&id)
	if err != nil {
		logger.SecurityLogger.Warn("Token for missing user", zap.Int("user_id", userID))
		return c.Status(401).JSON(fiber.Map{
			"message": "Unauthorized",
			"success": false,
			"status":  401,
		})
	}

	return c.JSON(fiber.Map{
		"message": "Token is valid",
		"success": true,
		"status":  200,
		"data": fiber.Map{
			"user_id": userID,
		},
	})
}

func Logout(c *fiber.Ctx) error {
	clearSessionCookie(c)
	return c.JSON(fiber.Map{
		"message": "Logged out successfully",
		"success": true,
		"status":  200,
	})
}

// ForgotPassword menyimpan reset token (berlaku 1 jam) pada user lalu
// mengirimkan link reset ke alamat email user tersebut.
func ForgotPassword(c *fiber.Ctx) error {
	type ForgotPasswordRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	var req ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in forgot password", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
			"success": false,
			"status":  400,
		})
	}
	if err := config.Validate.Struct(req); err != nil {
		logger.AuditLogger.Warn("Validation error during forgot password", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Validation error",
			"errors":  err.Error(),
			"success": false,
			"status":  400,
		})
	}

	var userID int
	err := config.DB.QueryRow("SELECT id FROM users WHERE username = $1", req.Email).Scan(&userID)
	if err != nil {
		logger.SecurityLogger.Warn("Password reset for unknown user", zap.String("email", req.Email))
		return c.Status(404).JSON(fiber.Map{
			"message": "User not found",
			"success": false,
			"status":  404,
		})
	}

	resetToken, err := token.GenerateReset()
	if err != nil {
		logger.ErrorLogger.Error("Error generating reset token", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error generating reset token",
			"success": false,
			"status":  500,
		})
	}

	expires := time.Now().Add(time.Hour)
	_, err = config.DB.Exec(
		"UPDATE users SET reset_token = $1, reset_token_expires = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $3",
		resetToken, expires, userID)
	if err != nil {
		logger.ErrorLogger.Error("Error storing reset token", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error storing reset token",
			"success": false,
			"status":  500,
		})
	}

	resetURL := fmt.Sprintf("%s/reset-password/%s", config.App.FrontendURL, resetToken)
	body := fmt.Sprintf(`
        <p>You are receiving this email because you (or someone else) has requested the reset of the password for your account.</p>
        <p>Please click on the following link, or paste this into your browser to complete the process:</p>
        <a href="%s">%s</a>
        <p>If you did not request this, please ignore this email and your password will remain unchanged.</p>
    `, resetURL, resetURL)
	if err := config.Mailer.Send(req.Email, "Password Reset Request", body); err != nil {
		logger.ErrorLogger.Error("Error sending password reset email", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Failed to send reset email",
			"success": false,
			"status":  500,
		})
	}

	logger.AuditLogger.Info("Password reset email sent", zap.Int("user_id", userID))
	return c.JSON(fiber.Map{
		"message": "Password reset email sent",
		"success": true,
		"status":  200,
	})
}

// ResetPassword mengganti password jika token cocok dan belum kedaluwarsa.
// Token hanya bisa dipakai sekali: langsung di-NULL-kan pada query yang sama.
func ResetPassword(c *fiber.Ctx) error {
	resetToken := c.Params("token")

	type ResetPasswordRequest struct {
		Password string `json:"password" validate:"required,min=6"`
	}

	var req ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in reset password", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
			"success": false,
			"status":  400,
		})
	}
	if err := config.Validate.Struct(req); err != nil {
		logger.AuditLogger.Warn("Validation error during reset password", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Validation error",
			"errors":  err.Error(),
			"success": false,
			"status":  400,
		})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.ErrorLogger.Error("Error hashing password", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error hashing password",
			"success": false,
			"status":  500,
		})
	}

	res, err := config.DB.Exec(`
        UPDATE users
        SET password = $1, reset_token = NULL, reset_token_expires = NULL, updated_at = CURRENT_TIMESTAMP
        WHERE reset_token = $2 AND reset_token_expires > NOW()`,
		string(hashedPassword), resetToken)
	if err != nil {
		logger.ErrorLogger.Error("Error resetting password", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error resetting password",
			"success": false,
			"status":  500,
		})
	}
	rows, err := res.RowsAffected()
	if err != nil || rows == 0 {
		logger.SecurityLogger.Warn("Invalid or expired reset token")
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid or expired token",
			"success": false,
			"status":  400,
		})
	}

	logger.AuditLogger.Info("Password reset successful")
	return c.JSON(fiber.Map{
		"message": "Password reset successful",
		"success": true,
		"status":  200,
	})
}
