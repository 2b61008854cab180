package homework

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/tutor-crm/backend/internal/generator"
	"github.com/tutor-crm/backend/internal/models"
)

const (
	MinTasksCount = 3
	MaxTasksCount = 10

	maxSubjectLen = 500
	maxTopicLen   = 4000
)

// Storage is the slice of Store the generation pipeline needs. The
// production implementation is *Store; tests drive the same protocol with
// an in-memory fake.
type Storage interface {
	Balance(ctx context.Context, userID int64) (int, error)
	StudentBelongsToUser(ctx context.Context, studentID, userID int64) (bool, error)
	WithCreditHold(ctx context.Context, userID int64, cost int, fn func(context.Context) (*models.Homework, error)) (*models.Homework, int, error)
}

// Service orchestrates the generation pipeline: credit gate, provider
// resolution, prompt build, generation, structural and quality validation,
// then the atomic persist-and-deduct.
type Service struct {
	store    Storage
	registry generator.Resolver
}

func NewService(store Storage, registry generator.Resolver) *Service {
	return &Service{store: store, registry: registry}
}

func (s *Service) Generate(ctx context.Context, userID int64, req models.GenerateHomeworkRequest) (*models.GenerateHomeworkResponse, error) {
	if req.TasksCount < MinTasksCount || req.TasksCount > MaxTasksCount {
		return nil, ErrInvalidTaskCount
	}
	if len(req.Subject) > maxSubjectLen {
		return nil, fmt.Errorf("%w: subject too long", ErrInvalidRequest)
	}
	if len(req.Topic) > maxTopicLen {
		return nil, fmt.Errorf("%w: topic too long", ErrInvalidRequest)
	}
	if req.Provider == "" {
		req.Provider = models.ProviderLow
	}
	if !models.ValidProviderTiers[req.Provider] {
		return nil, fmt.Errorf("%w: unknown provider tier %q", ErrInvalidRequest, req.Provider)
	}

	owned, err := s.store.StudentBelongsToUser(ctx, req.StudentID, userID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, ErrStudentNotFound
	}

	cost := Cost(req.TasksCount, generator.TierMultiplier(req.Provider))

	// Cheap pre-gate; the authoritative check happens under the row lock.
	balance, err := s.store.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	if balance < cost {
		return nil, ErrInsufficientCredits
	}

	var tasks []models.Task
	var report models.QualityReport

	start := time.Now()
	rec, newBalance, err := s.store.WithCreditHold(ctx, userID, cost, func(ctx context.Context) (*models.Homework, error) {
		provider, err := s.registry.Resolve(req.Provider)
		if err != nil {
			return nil, err
		}

		prompt := generator.BuildHomeworkPrompt(req.Subject, req.Topic, req.Difficulty, req.TasksCount)
		raw, err := provider.Invoke(ctx, generator.SystemPrompt(), prompt)
		if err != nil {
			return nil, err
		}

		parsed, err := generator.ParseTasks(raw, req.TasksCount)
		if err != nil {
			return nil, err
		}

		tasks, report = generator.FilterTasks(parsed, req.Subject, req.Difficulty)

		tasksJSON, err := json.Marshal(tasks)
		if err != nil {
			return nil, fmt.Errorf("marshal tasks: %w", err)
		}
		reportJSON, err := json.Marshal(report)
		if err != nil {
			return nil, fmt.Errorf("marshal report: %w", err)
		}

		return &models.Homework{
			UserID:         userID,
			StudentID:      req.StudentID,
			Subject:        req.Subject,
			Topic:          req.Topic,
			Difficulty:     req.Difficulty,
			TasksCount:     req.TasksCount,
			Provider:       req.Provider,
			GeneratedTasks: tasksJSON,
			Validation:     reportJSON,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Homework %d generated for user %d: %d/%d tasks passed, %d credits spent, took %v",
		rec.ID, userID, report.ValidCount, report.TotalGenerated, cost, time.Since(start).Round(time.Millisecond))

	return &models.GenerateHomeworkResponse{
		ID:           rec.ID,
		Tasks:        tasks,
		Validation:   report,
		CreditsSpent: cost,
		CreditsLeft:  newBalance,
	}, nil
}
