package api

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"cashout_system/internal/domain" // Importing domain models
	"cashout_system/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library
)

// LoginRequest is a staff login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"` // Login email must be provided
	Password string `json:"password" binding:"required"`    // Password must be provided
}

// AuthResponse carries the issued token
type AuthResponse struct {
	Token string `json:"token"` // JWT token
}

// CreateStaffRequest is an admin creating a staff login
type CreateStaffRequest struct {
	Email    string `json:"email" binding:"required,email"`        // Login email
	Password string `json:"password" binding:"required,min=8,max=64"` // Initial password
	Role     string `json:"role" binding:"required,oneof=staff admin"` // staff or admin
	VenueID  string `json:"venue_id"`                              // Venue scope, empty for admins
}

// LoginHandler authenticates a staff member and returns a JWT token
func LoginHandler(db *gorm.DB, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		var staff domain.Staff // Fetch staff member from database
		if err := db.Where("email = ?", strings.ToLower(req.Email)).First(&staff).Error; err != nil {
			// If staff not found, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		// Compare provided password with stored hash
		if err := bcrypt.CompareHashAndPassword([]byte(staff.Password), []byte(req.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		// Generate JWT token carrying the staff and venue context
		token, err := utils.GenerateJWT(staff.ID, staff.VenueID, staff.Email, staff.Role, jwtSecret)
		if err != nil {
			// If token generation fails, return internal server error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		// Return the token in the response
		c.JSON(http.StatusOK, AuthResponse{Token: token})
	}
}

// CreateStaffHandler lets an admin create a staff login
func CreateStaffHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateStaffRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Hash the password and create the staff member
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			// If hashing fails, return internal server error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}
		// Store email lowercase to ensure uniqueness
		staff := domain.Staff{
			Email:    strings.ToLower(req.Email), // Login email
			Password: string(hash),               // Hashed password
			Role:     req.Role,                   // Role
			VenueID:  req.VenueID,                // Venue scope
		}
		// Attempt to create the staff member in the database
		if err := db.Create(&staff).Error; err != nil {
			// If creation fails (e.g., duplicate email), return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email already exists"})
			return
		}
		// Return success response
		c.JSON(http.StatusCreated, gin.H{"message": "Staff created", "id": staff.ID})
	}
}
