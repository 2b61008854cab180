package homework

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tutor-crm/backend/internal/generator"
	"github.com/tutor-crm/backend/internal/models"
)

// fakeStore is an in-memory Storage. Its mutex is held for the whole
// WithCreditHold call, mirroring the row lock the real store takes.
type fakeStore struct {
	mu       sync.Mutex
	balances map[int64]int
	students map[int64]int64 // student ID -> owning user ID
	saved    []*models.Homework
	nextID   int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		balances: make(map[int64]int),
		students: make(map[int64]int64),
	}
}

func (f *fakeStore) Balance(ctx context.Context, userID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[userID], nil
}

func (f *fakeStore) StudentBelongsToUser(ctx context.Context, studentID, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.students[studentID] == userID, nil
}

func (f *fakeStore) WithCreditHold(ctx context.Context, userID int64, cost int, fn func(context.Context) (*models.Homework, error)) (*models.Homework, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	balance := f.balances[userID]
	if balance < cost {
		return nil, balance, ErrInsufficientCredits
	}

	rec, err := fn(ctx)
	if err != nil {
		return nil, balance, err
	}

	f.nextID++
	rec.ID = f.nextID
	rec.CreditsSpent = cost
	rec.CreatedAt = time.Now()
	f.saved = append(f.saved, rec)

	newBalance := balance - cost
	f.balances[userID] = newBalance
	return rec, newBalance, nil
}

func (f *fakeStore) savedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

// staticProvider returns a fixed payload and counts invocations.
type staticProvider struct {
	mu         sync.Mutex
	output     string
	err        error
	multiplier int
	calls      int
}

func (p *staticProvider) Name() string        { return "static" }
func (p *staticProvider) CostMultiplier() int { return p.multiplier }

func (p *staticProvider) Invoke(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return p.output, p.err
}

func (p *staticProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type staticResolver struct {
	provider generator.Provider
	err      error
}

func (r *staticResolver) Resolve(tier models.ProviderTier) (generator.Provider, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.provider, nil
}

func tasksJSON(n int) string {
	var items []string
	for i := 1; i <= n; i++ {
		items = append(items, fmt.Sprintf(
			`{"number":%d,"text":"Решите уравнение x^2 - %dx + 6 = 0.","solution":"По теореме Виета сумма корней равна %d, произведение равно 6.","answer":"корни"}`,
			i, i, i))
	}
	return `{"tasks":[` + strings.Join(items, ",") + `]}`
}

func validRequest(count int, tier models.ProviderTier) models.GenerateHomeworkRequest {
	return models.GenerateHomeworkRequest{
		StudentID:  1,
		Subject:    "математика",
		Topic:      "Квадратные уравнения",
		Difficulty: models.DifficultyOGE,
		TasksCount: count,
		Provider:   tier,
	}
}

func TestGenerate_Success(t *testing.T) {
	store := newFakeStore()
	store.balances[42] = 5
	store.students[1] = 42

	provider := &staticProvider{output: tasksJSON(6), multiplier: 2}
	svc := NewService(store, &staticResolver{provider: provider})

	// 6 tasks at the mid tier: base 2, multiplier 2 -> 4 credits.
	resp, err := svc.Generate(context.Background(), 42, validRequest(6, models.ProviderMid))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.CreditsSpent != 4 {
		t.Errorf("CreditsSpent = %d, want 4", resp.CreditsSpent)
	}
	if resp.CreditsLeft != 1 {
		t.Errorf("CreditsLeft = %d, want 1", resp.CreditsLeft)
	}
	if len(resp.Tasks) != 6 {
		t.Errorf("got %d tasks, want 6", len(resp.Tasks))
	}
	if resp.Validation.TotalGenerated != 6 || resp.Validation.ValidCount != 6 {
		t.Errorf("unexpected validation report: %+v", resp.Validation)
	}
	if store.savedCount() != 1 {
		t.Errorf("saved %d records, want 1", store.savedCount())
	}
	if store.balances[42] != 1 {
		t.Errorf("stored balance = %d, want 1", store.balances[42])
	}

	var persisted []models.Task
	if err := json.Unmarshal(store.saved[0].GeneratedTasks, &persisted); err != nil {
		t.Fatalf("persisted tasks not valid JSON: %v", err)
	}
	if len(persisted) != 6 {
		t.Errorf("persisted %d tasks, want 6", len(persisted))
	}
}

func TestGenerate_InsufficientCredits(t *testing.T) {
	store := newFakeStore()
	store.balances[42] = 0
	store.students[1] = 42

	provider := &staticProvider{output: tasksJSON(3), multiplier: 1}
	svc := NewService(store, &staticResolver{provider: provider})

	_, err := svc.Generate(context.Background(), 42, validRequest(3, models.ProviderLow))
	if !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
	if provider.callCount() != 0 {
		t.Errorf("provider invoked %d times despite empty balance", provider.callCount())
	}
	if store.savedCount() != 0 {
		t.Error("record saved despite empty balance")
	}
}

func TestGenerate_InvalidTaskCount(t *testing.T) {
	store := newFakeStore()
	store.balances[42] = 10
	store.students[1] = 42
	svc := NewService(store, &staticResolver{provider: &staticProvider{multiplier: 1}})

	for _, count := range []int{0, 1, 2, 11, 100} {
		_, err := svc.Generate(context.Background(), 42, validRequest(count, models.ProviderLow))
		if !errors.Is(err, ErrInvalidTaskCount) {
			t.Errorf("count %d: expected ErrInvalidTaskCount, got %v", count, err)
		}
	}
}

func TestGenerate_UnknownProviderTier(t *testing.T) {
	store := newFakeStore()
	store.balances[42] = 10
	store.students[1] = 42
	svc := NewService(store, &staticResolver{provider: &staticProvider{multiplier: 1}})

	_, err := svc.Generate(context.Background(), 42, validRequest(5, models.ProviderTier("ultra")))
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestGenerate_DefaultsToLowTier(t *testing.T) {
	store := newFakeStore()
	store.balances[42] = 10
	store.students[1] = 42

	provider := &staticProvider{output: tasksJSON(5), multiplier: 1}
	svc := NewService(store, &staticResolver{provider: provider})

	resp, err := svc.Generate(context.Background(), 42, validRequest(5, ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.CreditsSpent != 1 {
		t.Errorf("CreditsSpent = %d, want 1 for the default tier", resp.CreditsSpent)
	}
}

func TestGenerate_StudentNotOwned(t *testing.T) {
	store := newFakeStore()
	store.balances[42] = 10
	store.students[1] = 99 // someone else's student
	svc := NewService(store, &staticResolver{provider: &staticProvider{multiplier: 1}})

	_, err := svc.Generate(context.Background(), 42, validRequest(5, models.ProviderLow))
	if !errors.Is(err, ErrStudentNotFound) {
		t.Fatalf("expected ErrStudentNotFound, got %v", err)
	}
}

func TestGenerate_ProviderUnavailable(t *testing.T) {
	store := newFakeStore()
	store.balances[42] = 10
	store.students[1] = 42
	svc := NewService(store, &staticResolver{err: generator.ErrProviderUnavailable})

	_, err := svc.Generate(context.Background(), 42, validRequest(5, models.ProviderHigh))
	if !errors.Is(err, generator.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
	if store.balances[42] != 10 {
		t.Errorf("balance changed to %d on resolver failure", store.balances[42])
	}
	if store.savedCount() != 0 {
		t.Error("record saved on resolver failure")
	}
}

func TestGenerate_MalformedResponseNoDeduction(t *testing.T) {
	store := newFakeStore()
	store.balances[42] = 10
	store.students[1] = 42

	provider := &staticProvider{output: "Вот ваши задания: 1. Решите...", multiplier: 1}
	svc := NewService(store, &staticResolver{provider: provider})

	_, err := svc.Generate(context.Background(), 42, validRequest(5, models.ProviderLow))
	if !errors.Is(err, generator.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
	if store.balances[42] != 10 {
		t.Errorf("balance changed to %d on malformed response", store.balances[42])
	}
	if store.savedCount() != 0 {
		t.Error("record saved on malformed response")
	}
}

func TestGenerate_RequestFailedNoDeduction(t *testing.T) {
	store := newFakeStore()
	store.balances[42] = 10
	store.students[1] = 42

	provider := &staticProvider{err: generator.ErrRequestFailed, multiplier: 1}
	svc := NewService(store, &staticResolver{provider: provider})

	_, err := svc.Generate(context.Background(), 42, validRequest(5, models.ProviderLow))
	if !errors.Is(err, generator.ErrRequestFailed) {
		t.Fatalf("expected ErrRequestFailed, got %v", err)
	}
	if store.balances[42] != 10 {
		t.Errorf("balance changed to %d on provider failure", store.balances[42])
	}
}

// A structurally valid response still costs credits even when the quality
// filter rejects every task: the provider was paid for.
func TestGenerate_QualityRejectionStillDeducts(t *testing.T) {
	store := newFakeStore()
	store.balances[42] = 10
	store.students[1] = 42

	hedged := `{"tasks":[{"number":1,"text":"Выберите вариант: А) 1 Б) 2","solution":"Верен А. Остальные варианты тоже подходят по смыслу.","answer":"А"},` +
		`{"number":2,"text":"Выберите вариант: А) 1 Б) 2","solution":"Верен Б. Остальные варианты тоже подходят по смыслу.","answer":"Б"},` +
		`{"number":3,"text":"Выберите вариант: А) 1 Б) 2","solution":"Верен А. Остальные варианты тоже подходят по смыслу.","answer":"А"}]}`

	provider := &staticProvider{output: hedged, multiplier: 1}
	svc := NewService(store, &staticResolver{provider: provider})

	resp, err := svc.Generate(context.Background(), 42, validRequest(3, models.ProviderLow))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(resp.Tasks) != 0 {
		t.Errorf("got %d accepted tasks, want 0", len(resp.Tasks))
	}
	if resp.Validation.InvalidCount != 3 {
		t.Errorf("InvalidCount = %d, want 3", resp.Validation.InvalidCount)
	}
	if resp.CreditsSpent != 1 {
		t.Errorf("CreditsSpent = %d, want 1", resp.CreditsSpent)
	}
	if store.balances[42] != 9 {
		t.Errorf("balance = %d, want 9", store.balances[42])
	}
	if store.savedCount() != 1 {
		t.Errorf("saved %d records, want 1", store.savedCount())
	}
}

// Two concurrent requests against a single remaining credit: exactly one may
// succeed, and the balance must never go negative.
func TestGenerate_ConcurrentLastCredit(t *testing.T) {
	store := newFakeStore()
	store.balances[42] = 1
	store.students[1] = 42

	provider := &staticProvider{output: tasksJSON(3), multiplier: 1}
	svc := NewService(store, &staticResolver{provider: provider})

	const attempts = 2
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Generate(context.Background(), 42, validRequest(3, models.ProviderLow))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var succeeded, rejected int
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrInsufficientCredits):
			rejected++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if succeeded != 1 {
		t.Errorf("%d requests succeeded, want exactly 1", succeeded)
	}
	if rejected != attempts-1 {
		t.Errorf("%d requests rejected, want %d", rejected, attempts-1)
	}
	if store.balances[42] != 0 {
		t.Errorf("final balance = %d, want 0", store.balances[42])
	}
	if store.savedCount() != 1 {
		t.Errorf("saved %d records, want 1", store.savedCount())
	}
}

func TestGenerate_OversizedFields(t *testing.T) {
	store := newFakeStore()
	store.balances[42] = 10
	store.students[1] = 42
	svc := NewService(store, &staticResolver{provider: &staticProvider{multiplier: 1}})

	req := validRequest(5, models.ProviderLow)
	req.Topic = strings.Repeat("а", maxTopicLen+1)
	if _, err := svc.Generate(context.Background(), 42, req); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("oversized topic: expected ErrInvalidRequest, got %v", err)
	}

	req = validRequest(5, models.ProviderLow)
	req.Subject = strings.Repeat("s", maxSubjectLen+1)
	if _, err := svc.Generate(context.Background(), 42, req); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("oversized subject: expected ErrInvalidRequest, got %v", err)
	}
}
