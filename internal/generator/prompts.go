package generator

import (
	"fmt"
	"strings"

	"github.com/tutor-crm/backend/internal/models"
)

// levelLabels translates the difficulty enum into the display label used
// inside prompts.
var levelLabels = map[models.DifficultyLevel]string{
	models.DifficultyOGE:        "ОГЭ",
	models.DifficultyEGEBase:    "ЕГЭ базовый уровень",
	models.DifficultyEGEProfile: "ЕГЭ профильный уровень",
	models.DifficultyOlympiad:   "Олимпиада",
}

// LevelLabel returns the human-readable label for a difficulty level.
// Unknown values pass through unchanged.
func LevelLabel(level models.DifficultyLevel) string {
	if label, ok := levelLabels[level]; ok {
		return label
	}
	return string(level)
}

// problemContextMarkers flag a topic that embeds the student's specific
// error pattern rather than a plain topic name.
var problemContextMarkers = []string{
	"проблема",
	"ошибается",
	"ошибки",
	"затрудняется",
	"не понимает",
	"слабое место",
}

// HasProblemContext reports whether the topic text carries a student
// problem-context fragment.
func HasProblemContext(topic string) bool {
	lower := strings.ToLower(topic)
	for _, marker := range problemContextMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// SystemPrompt is the fixed system message for homework generation.
func SystemPrompt() string {
	return "Ты опытный репетитор, который создаёт уникальные задачи для учеников. Всегда отвечай только валидным JSON."
}

// BuildHomeworkPrompt renders the user prompt for a generation request.
// Pure function: no I/O, deterministic given its inputs.
func BuildHomeworkPrompt(subject, topic string, level models.DifficultyLevel, count int) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(
		"Составь %d уникальных заданий по предмету «%s» на тему «%s».\n", count, subject, topic))
	sb.WriteString(fmt.Sprintf("Уровень сложности: %s.\n\n", LevelLabel(level)))

	sb.WriteString(`ТРЕБОВАНИЯ К ЗАДАНИЯМ:
- Каждое задание должно быть самодостаточным: всё, на что ссылается решение или ответ (варианты, списки, данные), должно присутствовать в тексте задания
- У задания ровно один правильный ответ; решение не должно допускать других вариантов
- Решение объясняет, почему ответ верен, и почему остальные варианты (если они есть) неверны
- Не используй абстрактные формулировки вместо конкретных фактов, законов и механизмов
- Нумерация заданий сквозная, начиная с 1

`)

	if HasProblemContext(topic) {
		sb.WriteString(`КОНТЕКСТ УЧЕНИКА:
Тема содержит описание конкретной проблемы или типичной ошибки ученика.
Построй задания так, чтобы они целенаправленно прорабатывали именно эту
проблему: от простого случая к сложному, с решениями, которые явно
разбирают источник ошибки.

`)
	}

	sb.WriteString(fmt.Sprintf(`ФОРМАТ ОТВЕТА — строго JSON без пояснений:
{
  "tasks": [
    {
      "number": 1,
      "text": "условие задания",
      "solution": "подробное решение",
      "answer": "краткий ответ"
    }
  ]
}

Всего заданий: %d.`, count))

	return sb.String()
}
