package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/voxcraft/voxcraft-golang/internal/auth"
	"github.com/voxcraft/voxcraft-golang/internal/models"
)

// startingCredits is the balance granted to a fresh account.
const startingCredits = 1000

// RegisterUserInput is the sign-up request body. Separate from
// models.User so callers cannot set an id or a balance.
type RegisterUserInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"fullName" binding:"required"`
}

// Register is the handler for POST /v1/register.
func (h *Handlers) Register(c *gin.Context) {
	var input RegisterUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Duplicate email check first, so the caller gets a clear message
	// instead of a bare constraint violation.
	var existingID int64
	err := h.DB.QueryRow("SELECT id FROM users WHERE email = ?", input.Email).Scan(&existingID)
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already in use"})
		return
	}
	if !errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check email"})
		return
	}

	var password models.Password
	if err := password.Set(input.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	now := time.Now()
	res, err := h.DB.Exec(
		"INSERT INTO users (email, password_hash, full_name, credits, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		input.Email, password.Hash, input.FullName, startingCredits, now, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		return
	}
	userID, _ := res.LastInsertId()

	c.JSON(http.StatusCreated, gin.H{
		"message": "Account created successfully",
		"user": gin.H{
			"id":       userID,
			"email":    input.Email,
			"fullName": input.FullName,
			"credits":  startingCredits,
		},
	})
}

// LoginInput is the login request body.
type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login is the handler for POST /v1/login. On success it returns a JWT
// the client sends as a Bearer token on every authenticated call.
func (h *Handlers) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	err := h.DB.QueryRow(
		"SELECT id, email, password_hash, full_name, credits FROM users WHERE email = ?",
		input.Email).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FullName, &user.Credits)
	if errors.Is(err, sql.ErrNoRows) {
		// Same message as a bad password, so login probing cannot tell
		// which one it was.
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up account"})
		return
	}

	password := models.Password{Hash: user.PasswordHash}
	matches, err := password.Matches(input.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify password"})
		return
	}
	if !matches {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	token, err := auth.GenerateToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"id":       user.ID,
			"email":    user.Email,
			"fullName": user.FullName,
			"credits":  user.Credits,
		},
	})
}

// GetProfile is the handler for GET /v1/profile/me.
func (h *Handlers) GetProfile(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	var user models.User
	err := h.DB.QueryRow(
		"SELECT id, email, full_name, credits, created_at FROM users WHERE id = ?",
		userID).Scan(&user.ID, &user.Email, &user.FullName, &user.Credits, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// GetCredits is the handler for GET /v1/credits. The playbar polls this
// after every generation to keep the displayed balance honest.
func (h *Handlers) GetCredits(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	balance, err := h.Ledger.Balance(c.Request.Context(), userID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"credits": balance})
}
