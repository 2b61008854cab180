package generator

import (
	"strings"
	"testing"

	"github.com/tutor-crm/backend/internal/models"
)

func TestLevelLabel(t *testing.T) {
	tests := []struct {
		level models.DifficultyLevel
		want  string
	}{
		{models.DifficultyOGE, "ОГЭ"},
		{models.DifficultyEGEBase, "ЕГЭ базовый уровень"},
		{models.DifficultyEGEProfile, "ЕГЭ профильный уровень"},
		{models.DifficultyOlympiad, "Олимпиада"},
		{models.DifficultyLevel("custom"), "custom"},
	}

	for _, tt := range tests {
		if got := LevelLabel(tt.level); got != tt.want {
			t.Errorf("LevelLabel(%q) = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestBuildHomeworkPrompt_Deterministic(t *testing.T) {
	a := BuildHomeworkPrompt("математика", "Квадратные уравнения", models.DifficultyOGE, 5)
	b := BuildHomeworkPrompt("математика", "Квадратные уравнения", models.DifficultyOGE, 5)
	if a != b {
		t.Fatal("identical inputs produced different prompts")
	}
}

func TestBuildHomeworkPrompt_Contents(t *testing.T) {
	prompt := BuildHomeworkPrompt("история", "Крымская война", models.DifficultyEGEProfile, 7)

	for _, want := range []string{
		"Составь 7 уникальных заданий",
		"«история»",
		"«Крымская война»",
		"ЕГЭ профильный уровень",
		"Всего заданий: 7.",
		`"tasks"`,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildHomeworkPrompt_ProblemContext(t *testing.T) {
	plain := BuildHomeworkPrompt("математика", "Дроби", models.DifficultyOGE, 5)
	if strings.Contains(plain, "КОНТЕКСТ УЧЕНИКА") {
		t.Error("plain topic must not include the student context section")
	}

	problem := BuildHomeworkPrompt("математика",
		"Ученик ошибается в знаках при раскрытии скобок", models.DifficultyOGE, 5)
	if !strings.Contains(problem, "КОНТЕКСТ УЧЕНИКА") {
		t.Error("problem-context topic must include the student context section")
	}
}

func TestHasProblemContext(t *testing.T) {
	tests := []struct {
		topic string
		want  bool
	}{
		{"Квадратные уравнения", false},
		{"Ученик ошибается в подсчёте дискриминанта", true},
		{"ПРОБЛЕМА с дробями", true},
		{"Затрудняется при чтении графиков", true},
		{"Не понимает тему причастий", true},
		{"Слабое место: хронология XIX века", true},
	}

	for _, tt := range tests {
		if got := HasProblemContext(tt.topic); got != tt.want {
			t.Errorf("HasProblemContext(%q) = %v, want %v", tt.topic, got, tt.want)
		}
	}
}
