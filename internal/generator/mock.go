package generator

import (
	"context"
	"fmt"
)

// MockProvider returns canned homework JSON for local development and tests.
type MockProvider struct {
	name       string
	multiplier int
}

func NewMockProvider(name string, multiplier int) *MockProvider {
	return &MockProvider{name: "mock/" + name, multiplier: multiplier}
}

func (m *MockProvider) Name() string        { return m.name }
func (m *MockProvider) CostMultiplier() int { return m.multiplier }

func (m *MockProvider) Invoke(ctx context.Context, systemPrompt string, userPrompt string) (string, error) {
	return buildMockJSON(5), nil
}

func buildMockJSON(count int) string {
	tasks := "["
	for i := 1; i <= count; i++ {
		if i > 1 {
			tasks += ","
		}
		tasks += fmt.Sprintf(
			`{"number":%d,"text":"[Mock] Решите уравнение x^2 - %dx + %d = 0.","solution":"[Mock] По теореме Виета сумма корней равна %d, произведение равно %d. Корни: 1 и %d.","answer":"1; %d"}`,
			i, i+1, i, i+1, i, i, i)
	}
	tasks += "]"
	return fmt.Sprintf(`{"tasks":%s}`, tasks)
}
