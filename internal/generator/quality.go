package generator

import (
	"fmt"
	"log"
	"math"
	"regexp"
	"strings"

	"github.com/tutor-crm/backend/internal/models"
)

// RuleContext carries the per-request facts quality rules key off.
type RuleContext struct {
	Subject   string
	Level     string
	IsHistory bool
}

// QualityRule checks one task against a single acceptance category and
// returns human-readable findings. An empty slice means the task passes
// this category.
type QualityRule interface {
	Name() string
	Check(task models.Task, rc RuleContext) []string
}

// qualityRules is the fixed content rule set applied to every structurally
// sound task. Order matters only for the ordering of findings in the report.
var qualityRules = []QualityRule{
	closureRule{},
	uniquenessRule{},
	chronologyRule{},
	causalityRule{},
	terminologyRule{},
	proofRule{},
	contradictionRule{},
}

// NewRuleContext derives the rule context from a request's subject/level.
func NewRuleContext(subject string, level models.DifficultyLevel) RuleContext {
	lower := strings.ToLower(subject)
	return RuleContext{
		Subject:   lower,
		Level:     strings.ToLower(LevelLabel(level)),
		IsHistory: strings.Contains(lower, "истор"),
	}
}

// FilterTasks partitions tasks into accepted and rejected by running every
// rule against every task independently. Order of the input is preserved
// on both sides.
func FilterTasks(tasks []models.Task, subject string, level models.DifficultyLevel) ([]models.Task, models.QualityReport) {
	rc := NewRuleContext(subject, level)

	valid := make([]models.Task, 0, len(tasks))
	rejected := make([]models.RejectedTask, 0)

	for _, task := range tasks {
		// A structure failure is terminal: with required fields missing the
		// content rules have nothing trustworthy to inspect.
		findings := (structureRule{}).Check(task, rc)
		if len(findings) == 0 {
			for _, rule := range qualityRules {
				findings = append(findings, rule.Check(task, rc)...)
			}
		}

		if len(findings) == 0 {
			valid = append(valid, task)
		} else {
			rejected = append(rejected, models.RejectedTask{Number: task.Number, Errors: findings})
			log.Printf("Task #%d failed quality validation: %v", task.Number, findings)
		}
	}

	report := models.QualityReport{
		TotalGenerated: len(tasks),
		ValidCount:     len(valid),
		InvalidCount:   len(rejected),
		QualityScore:   qualityScore(len(valid), len(tasks)),
		RejectedTasks:  rejected,
	}

	log.Printf("Quality validation: %d valid, %d invalid, score %.2f",
		report.ValidCount, report.InvalidCount, report.QualityScore)

	return valid, report
}

// qualityScore is valid/total rounded to 2 decimals; 0 for an empty batch.
func qualityScore(valid, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(valid)/float64(total)*100) / 100
}

// ── Structure ──────────────────────────────────────────────

// structureRule rejects a task whose required fields are empty. When it
// fires, FilterTasks reports only this finding and skips the content rules.
type structureRule struct{}

func (structureRule) Name() string { return "structure" }

func (structureRule) Check(task models.Task, rc RuleContext) []string {
	if strings.TrimSpace(task.Text) == "" ||
		strings.TrimSpace(task.Solution) == "" ||
		strings.TrimSpace(task.Answer) == "" {
		return []string{"Отсутствуют обязательные поля (text/solution/answer)"}
	}
	return nil
}

// ── 1. Closure ─────────────────────────────────────────────

// Everything the solution or answer references must appear in the task's
// own statement.
type closureRule struct{}

var (
	optionMarkerRe    = regexp.MustCompile(`[А-Га-гA-D1-4]\)`)
	optionRefRe       = regexp.MustCompile(`(?i)вариант[аеуы]?\s+([А-Г]|[A-D]|[а-г]|[1-4])`)
	answerOptionRe    = regexp.MustCompile(`^([А-Г]|[A-D]|[а-г])$`)
	matchingTaskRe    = regexp.MustCompile(`(?i)сопост[ао]в`)
	matchingListRe    = regexp.MustCompile(`[1-4]\).*[А-Г]\)`)
	matchingListRevRe = regexp.MustCompile(`[А-Г]\).*[1-4]\)`)
)

func (closureRule) Name() string { return "closure" }

func (closureRule) Check(task models.Task, rc RuleContext) []string {
	var findings []string

	hasOptionsInText := optionMarkerRe.MatchString(task.Text)
	refsInSolution := optionRefRe.MatchString(task.Solution)
	refsInAnswer := answerOptionRe.MatchString(strings.TrimSpace(task.Answer))

	if (refsInSolution || refsInAnswer) && !hasOptionsInText {
		findings = append(findings,
			"ЗАМКНУТОСТЬ: Решение/ответ ссылается на варианты (А/Б/В...), которых нет в условии задания")
	}

	if matchingTaskRe.MatchString(task.Text) {
		if !matchingListRe.MatchString(task.Text) && !matchingListRevRe.MatchString(task.Text) {
			findings = append(findings,
				"ЗАМКНУТОСТЬ: Требуется сопоставление, но нет списка элементов для сопоставления")
		}
	}

	return findings
}

// ── 2. Uniqueness ──────────────────────────────────────────

// The solution must not hedge toward multiple correct options.
type uniquenessRule struct{}

var weakReasoningRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)остальные\s+(варианты\s+)?(тоже\s+)?(подходят|связаны|верны)`),
	regexp.MustCompile(`(?i)в\s+целом`),
	regexp.MustCompile(`(?i)можно\s+сказать`),
	regexp.MustCompile(`(?i)в\s+общем\s+смысле`),
	regexp.MustCompile(`(?i)отчасти\s+верн`),
}

var allOptionsFitRe = regexp.MustCompile(`(?i)все\s+(варианты|пункты|ответы).{0,30}(связан|подход|верн)`)

func (uniquenessRule) Name() string { return "uniqueness" }

func (uniquenessRule) Check(task models.Task, rc RuleContext) []string {
	var findings []string

	for _, re := range weakReasoningRes {
		if m := re.FindString(task.Solution); m != "" {
			findings = append(findings, fmt.Sprintf(
				"ЕДИНСТВЕННОСТЬ: Решение содержит признак неоднозначности (найдено: %q)", m))
			break
		}
	}

	if allOptionsFitRe.MatchString(task.Solution) {
		findings = append(findings,
			"ЕДИНСТВЕННОСТЬ: Решение указывает, что несколько вариантов корректны")
	}

	return findings
}

// ── 3. Chronological precision (history subjects only) ─────

type chronologyRule struct{}

var (
	yearRe      = regexp.MustCompile(`(1[0-9]{3}|20[0-2][0-9])`)
	periodRe    = regexp.MustCompile(`\d{4}\s*[—–-]\s*\d{4}`)
	qualifierRe = regexp.MustCompile(`(?i)(начало|конец|завершение|кульминация|открытие)`)
	dateVerbRe  = regexp.MustCompile(`(?i)(создан|учрежд|основан|созван|открыт)`)
)

func (chronologyRule) Name() string { return "chronology" }

func (chronologyRule) Check(task models.Task, rc RuleContext) []string {
	if !rc.IsHistory {
		return nil
	}

	var findings []string

	hasPeriod := periodRe.MatchString(task.Text)
	hasSingleDates := len(yearRe.FindAllString(task.Text, -1)) >= 2

	if hasPeriod && hasSingleDates && !qualifierRe.MatchString(task.Text) {
		findings = append(findings,
			"ХРОНОЛОГИЯ: Смешаны периоды и точечные события без уточнений (начало/конец/кульминация)")
	}

	verbs := dateVerbRe.FindAllString(strings.ToLower(task.Solution), -1)
	distinct := make(map[string]bool)
	for _, v := range verbs {
		distinct[v] = true
	}
	if len(distinct) > 1 && yearRe.MatchString(task.Solution) {
		log.Printf("WARNING: task #%d possible date terminology confusion: %v", task.Number, verbs)
	}

	return findings
}

// ── 4. Causal specificity ──────────────────────────────────

// Cause/result tasks must cite concrete mechanisms, not abstract labels.
type causalityRule struct{}

var abstractTerms = []string{
	"улучшение", "ухудшение", "прогресс", "развитие",
	"демократизация", "модернизация",
}

var (
	causalityTaskRe = regexp.MustCompile(`(?i)(причин|следств|привел|вызва|результат)`)
	concreteTermRe  = regexp.MustCompile(`(?i)(закон|указ|манифест|реформ|институт|учреждение)`)
	causeAsEventRe  = regexp.MustCompile(`(?i)причина.*это\s+(событие|процесс)`)
)

func (causalityRule) Name() string { return "causality" }

func (causalityRule) Check(task models.Task, rc RuleContext) []string {
	if !causalityTaskRe.MatchString(task.Text) {
		return nil
	}

	var findings []string

	lowerSolution := strings.ToLower(task.Solution)
	var abstractFound []string
	for _, term := range abstractTerms {
		if strings.Contains(lowerSolution, term) {
			abstractFound = append(abstractFound, term)
		}
	}

	if len(abstractFound) > 0 && !concreteTermRe.MatchString(task.Solution) {
		findings = append(findings, fmt.Sprintf(
			"ПРИЧИННОСТЬ: Абстрактные оценки (%s) вместо конкретных механизмов/изменений",
			strings.Join(abstractFound, ", ")))
	}

	if causeAsEventRe.MatchString(task.Solution) {
		findings = append(findings,
			"ПРИЧИННОСТЬ: Причина подменена описанием события вместо объяснения «почему»")
	}

	return findings
}

// ── 5. Terminological rigor ────────────────────────────────

// Known vague phrasings are flagged unless a concretizing qualifier
// immediately follows. RE2 has no lookahead, so each pattern pairs the
// vague phrase with an allowed-continuation check on the tail.
type terminologyRule struct{}

type vagueTerm struct {
	phrase    *regexp.Regexp
	qualifier *regexp.Regexp
}

var vagueTerms = []vagueTerm{
	{
		phrase:    regexp.MustCompile(`(?i)парламентский\s+контроль`),
		qualifier: regexp.MustCompile(`(?i)^\s+(включал|означал|предполагал)`),
	},
	{
		phrase:    regexp.MustCompile(`(?i)первая\s+(русская|российская)\s+армия`),
		qualifier: regexp.MustCompile(`(?i)^\s+под\s+командованием`),
	},
	{
		phrase:    regexp.MustCompile(`(?i)отмена\s+монархии`),
		qualifier: regexp.MustCompile(`(?i)^\s+в\s+результате`),
	},
}

func (terminologyRule) Name() string { return "terminology" }

func (terminologyRule) Check(task models.Task, rc RuleContext) []string {
	var findings []string

	for _, vt := range vagueTerms {
		loc := vt.phrase.FindStringIndex(task.Solution)
		if loc == nil {
			continue
		}
		if vt.qualifier.MatchString(task.Solution[loc[1]:]) {
			continue
		}
		findings = append(findings, fmt.Sprintf(
			"ТЕРМИНОЛОГИЯ: Размытая формулировка без конкретизации (найдено: %q)",
			task.Solution[loc[0]:loc[1]]))
	}

	return findings
}

// ── 6. Proof adequacy ──────────────────────────────────────

// A solution that explains a "connection" to the answer without excluding
// the alternatives proves nothing.
type proofRule struct{}

var (
	exclusionRe    = regexp.MustCompile(`(?i)(остальные|другие|иные)\s+(варианты|пункты|ответы).{0,50}(неверн|неправ|ошибочн|не\s+подход)`)
	solutionOptRe  = regexp.MustCompile(`(?i)вариант\s+[А-Г]`)
	associationRe  = regexp.MustCompile(`(?i)потому что.{0,20}(связан|относ[ия]тся|каса[её]тся)`)
	anyExclusionRe = regexp.MustCompile(`(?i)(исключ|не\s+подход|неверн)`)
)

func (proofRule) Name() string { return "proof" }

func (proofRule) Check(task models.Task, rc RuleContext) []string {
	var findings []string

	if solutionOptRe.MatchString(task.Solution) && !exclusionRe.MatchString(task.Solution) {
		log.Printf("WARNING: task #%d solution does not explain why other options are wrong", task.Number)
	}

	if associationRe.MatchString(task.Solution) && !anyExclusionRe.MatchString(task.Solution) {
		findings = append(findings,
			"ДОКАЗАТЕЛЬНОСТЬ: Решение объясняет «связь», но не доказывает исключение других вариантов")
	}

	return findings
}

// ── 7. Self-consistency ────────────────────────────────────

// Hedge-and-reverse constructions contradict the single-answer claim.
type contradictionRule struct{}

var contradictionRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)однако.{0,20}(также|тоже)\s+(верн|подход)`),
	regexp.MustCompile(`(?i)но.{0,20}(можно|возможно)\s+рассматривать`),
	regexp.MustCompile(`(?i)хотя.{0,30}не\s+исключ`),
}

func (contradictionRule) Name() string { return "contradiction" }

func (contradictionRule) Check(task models.Task, rc RuleContext) []string {
	var findings []string

	for _, re := range contradictionRes {
		if m := re.FindString(task.Solution); m != "" {
			findings = append(findings, fmt.Sprintf(
				"САМОПРОТИВОРЕЧИЕ: Решение содержит противоречие или оговорки (найдено: %q)", m))
		}
	}

	return findings
}
