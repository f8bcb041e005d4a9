// DamifeZion | 2026
// dto.go

package account

import (
	"time"
)

type RegisterRequest struct {
	Email       string `json:"email"         validate:"required,email,max=255"`
	Password    string `json:"password"      validate:"required,min=8,max=128"`
	FirstName   string `json:"first_name"    validate:"required,min=1,max=100"`
	LastName    string `json:"last_name"     validate:"required,min=1,max=100"`
	DateOfBirth string `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
	PhoneNumber string `json:"phone_number"  validate:"omitempty,max=20"`
	Avatar      string `json:"avatar"        validate:"omitempty,max=500"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

type ResetPasswordRequest struct {
	ResetToken      string `json:"reset_token"      validate:"required"`
	OTP             string `json:"otp"              validate:"required,len=6,numeric"`
	NewPassword     string `json:"new_password"     validate:"required,min=8,max=128"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

type VerifyEmailRequest struct {
	OTP string `json:"otp" validate:"required,len=6,numeric"`
}

type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type UserResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	FullName    string    `json:"full_name"`
	Avatar      string    `json:"avatar"`
	Age         int       `json:"age"`
	EmailActive bool      `json:"email_active"`
	CreatedAt   time.Time `json:"created_at"`
}

type AuthResponse struct {
	User   UserResponse  `json:"user"`
	Tokens TokenResponse `json:"tokens"`
}

type SessionInfo struct {
	ID        string    `json:"id"`
	UserAgent string    `json:"user_agent"`
	IPAddress string    `json:"ip_address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SessionsResponse struct {
	Sessions []SessionInfo `json:"sessions"`
}
