package models

import "time"

// SubscriptionTier controls how many AI credits a user is granted.
type SubscriptionTier string

const (
	TierFree    SubscriptionTier = "free"
	TierBasic   SubscriptionTier = "basic"
	TierPremium SubscriptionTier = "premium"
)

// SubscriptionCredits is the credit grant attached to each tier.
var SubscriptionCredits = map[SubscriptionTier]int{
	TierFree:    10,
	TierBasic:   100,
	TierPremium: 1000,
}

type User struct {
	ID               int64            `json:"id"`
	Email            string           `json:"email"`
	Name             string           `json:"name"`
	Phone            string           `json:"phone,omitempty"`
	SubscriptionTier SubscriptionTier `json:"subscription_tier"`
	AICreditsLeft    int              `json:"ai_credits_left"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
