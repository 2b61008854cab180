package models

import (
	"encoding/json"
	"time"
)

// DifficultyLevel is the exam level a homework set is pitched at.
type DifficultyLevel string

const (
	DifficultyOGE        DifficultyLevel = "oge"
	DifficultyEGEBase    DifficultyLevel = "ege_base"
	DifficultyEGEProfile DifficultyLevel = "ege_profile"
	DifficultyOlympiad   DifficultyLevel = "olympiad"
)

var ValidDifficulties = map[DifficultyLevel]bool{
	DifficultyOGE:        true,
	DifficultyEGEBase:    true,
	DifficultyEGEProfile: true,
	DifficultyOlympiad:   true,
}

// ProviderTier selects which AI backend generates the homework.
// Each tier has its own credential and credit cost multiplier.
type ProviderTier string

const (
	ProviderLow  ProviderTier = "low"
	ProviderMid  ProviderTier = "mid"
	ProviderHigh ProviderTier = "high"
)

var ValidProviderTiers = map[ProviderTier]bool{
	ProviderLow:  true,
	ProviderMid:  true,
	ProviderHigh: true,
}

// Task is a single generated homework problem.
type Task struct {
	Number   int    `json:"number"`
	Text     string `json:"text"`
	Solution string `json:"solution"`
	Answer   string `json:"answer"`
}

// TaskBlock is a labeled group of tasks (worksheet response format).
type TaskBlock struct {
	Title string `json:"title"`
	Tasks []Task `json:"tasks"`
}

// RejectedTask records why a generated task failed quality validation.
type RejectedTask struct {
	Number int      `json:"number"`
	Errors []string `json:"errors"`
}

// QualityReport summarizes quality filtering over one generated batch.
type QualityReport struct {
	TotalGenerated int            `json:"total_generated"`
	ValidCount     int            `json:"valid_count"`
	InvalidCount   int            `json:"invalid_count"`
	QualityScore   float64        `json:"quality_score"`
	RejectedTasks  []RejectedTask `json:"rejected_tasks"`
}

type GenerateHomeworkRequest struct {
	StudentID  int64           `json:"student_id"`
	Subject    string          `json:"subject"`
	Topic      string          `json:"topic"`
	Difficulty DifficultyLevel `json:"difficulty"`
	TasksCount int             `json:"tasks_count"`
	Provider   ProviderTier    `json:"ai_provider"`
}

type GenerateHomeworkResponse struct {
	ID           int64         `json:"id"`
	Tasks        []Task        `json:"tasks"`
	Validation   QualityReport `json:"validation"`
	CreditsSpent int           `json:"credits_spent"`
	CreditsLeft  int           `json:"credits_left"`
}

// Homework is a persisted generation record.
type Homework struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	StudentID       int64           `json:"student_id"`
	Subject         string          `json:"subject"`
	Topic           string          `json:"topic"`
	Difficulty      DifficultyLevel `json:"difficulty"`
	TasksCount      int             `json:"tasks_count"`
	Provider        ProviderTier    `json:"provider"`
	CreditsSpent    int             `json:"credits_spent"`
	GeneratedTasks  json.RawMessage `json:"generated_tasks"`
	Validation      json.RawMessage `json:"validation"`
	SentViaTelegram bool            `json:"sent_via_telegram"`
	CreatedAt       time.Time       `json:"created_at"`
}

type SubscriptionInfo struct {
	SubscriptionTier SubscriptionTier `json:"subscription_tier"`
	AICreditsLeft    int              `json:"ai_credits_left"`
}
