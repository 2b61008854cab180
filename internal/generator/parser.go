package generator

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/tutor-crm/backend/internal/models"
)

// rawResponse covers both accepted response shapes: a flat "tasks" list or
// a worksheet-style "blocks" list.
type rawResponse struct {
	Tasks  []models.Task      `json:"tasks"`
	Blocks []models.TaskBlock `json:"blocks"`
}

// ParseTasks parses raw provider output and normalizes it to a flat task
// list. A count mismatch against expectedCount is logged but does not
// invalidate the result — only missing required fields or a missing
// container do.
func ParseTasks(raw string, expectedCount int) ([]models.Task, error) {
	cleaned := stripCodeFences(raw)

	var resp rawResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var tasks []models.Task
	var errs []string

	switch {
	case len(resp.Tasks) > 0:
		tasks = resp.Tasks
		for i, t := range tasks {
			errs = append(errs, checkTaskFields(t, i, true)...)
		}
	case len(resp.Blocks) > 0:
		for bi, block := range resp.Blocks {
			if len(block.Tasks) == 0 {
				errs = append(errs, fmt.Sprintf("block %d: empty task list", bi+1))
				continue
			}
			// Worksheet tasks may omit the solution field.
			for i, t := range block.Tasks {
				errs = append(errs, checkTaskFields(t, i, false)...)
			}
			tasks = append(tasks, block.Tasks...)
		}
	default:
		return nil, fmt.Errorf("%w: response has neither \"tasks\" nor \"blocks\"", ErrStructuralInvalid)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrStructuralInvalid, strings.Join(errs, "; "))
	}

	if len(tasks) != expectedCount {
		log.Printf("WARNING: requested %d tasks, provider returned %d", expectedCount, len(tasks))
	}

	seen := make(map[int]bool, len(tasks))
	for _, t := range tasks {
		if seen[t.Number] {
			log.Printf("WARNING: duplicate task number %d in response", t.Number)
		}
		seen[t.Number] = true
	}

	return tasks, nil
}

func checkTaskFields(t models.Task, index int, solutionRequired bool) []string {
	var errs []string
	if t.Number <= 0 {
		errs = append(errs, fmt.Sprintf("task %d: missing or non-positive number", index+1))
	}
	if strings.TrimSpace(t.Text) == "" {
		errs = append(errs, fmt.Sprintf("task %d: empty text", index+1))
	}
	if solutionRequired && strings.TrimSpace(t.Solution) == "" {
		errs = append(errs, fmt.Sprintf("task %d: empty solution", index+1))
	}
	if strings.TrimSpace(t.Answer) == "" {
		errs = append(errs, fmt.Sprintf("task %d: empty answer", index+1))
	}
	return errs
}

// stripCodeFences removes markdown fences some providers wrap JSON in.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimSpace(s)
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSpace(s)
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}
