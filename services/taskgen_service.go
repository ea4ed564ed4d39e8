package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/toc8730/StepSync/models"
)

const (
	groqEndpoint    = "https://api.groq.com/openai/v1/chat/completions"
	taskStepMinutes = 45
	maxTasks        = 8
)

const taskSystemInstruction = "You are a helpful family scheduling assistant. " +
	"Given the user's request, produce ONLY valid JSON matching this schema:\n" +
	`{"tasks":[{"title":string,"steps":string[],"startTime":string,"endTime":string,"period":"AM"|"PM"}]}.` + "\n" +
	"Use concise task titles (<=60 chars) and 1-6 actionable steps each. " +
	"Return 3-8 tasks in chronological order, using 12-hour times like \"7:30\". " +
	"Do not include any commentary outside the JSON."

// TaskGenService turns a free-form prompt into draft schedule blocks. The
// model call is best effort: any failure, missing key included, falls back
// to a deterministic local splitter so the endpoint never errors out on a
// collaborator problem.
type TaskGenService struct {
	APIKey string
	Model  string
	Client *http.Client
}

func NewTaskGenService(apiKey, model string) *TaskGenService {
	if model == "" {
		model = "llama-3.1-8b-instant"
	}
	return &TaskGenService{
		APIKey: apiKey,
		Model:  model,
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Generate returns an ordered list of draft blocks for the prompt.
func (s *TaskGenService) Generate(prompt string) []models.ScheduleBlock {
	if s.APIKey != "" {
		tasks, err := s.callGroq(prompt)
		if err == nil {
			return tasks
		}
		log.Printf("task generation failed, using heuristic fallback: %v", err)
	} else {
		log.Printf("GROQ_API_KEY missing; using heuristic fallback")
	}
	return heuristicTasks(prompt)
}

func (s *TaskGenService) callGroq(prompt string) ([]models.ScheduleBlock, error) {
	body, err := json.Marshal(map[string]interface{}{
		"model": s.Model,
		"messages": []map[string]string{
			{"role": "system", "content": taskSystemInstruction},
			{"role": "user", "content": prompt},
		},
		"temperature": 0.4,
		"max_tokens":  800,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, groqEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.APIKey)

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("groq HTTP %d", resp.StatusCode)
	}

	var payload struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if len(payload.Choices) == 0 || strings.TrimSpace(payload.Choices[0].Message.Content) == "" {
		return nil, errors.New("groq response contained no content")
	}

	var parsed interface{}
	if err := json.Unmarshal([]byte(stripCodeFence(payload.Choices[0].Message.Content)), &parsed); err != nil {
		return nil, fmt.Errorf("groq returned invalid JSON: %w", err)
	}

	tasks := sanitizeModelTasks(parsed)
	if len(tasks) == 0 {
		return nil, errors.New("groq response did not contain any tasks")
	}
	return tasks, nil
}

var codeFenceRe = regexp.MustCompile("(?i)^```(?:json)?")

func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = codeFenceRe.ReplaceAllString(trimmed, "")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	}
	return strings.TrimSpace(trimmed)
}

// sanitizeModelTasks coerces whatever the model produced into well-formed
// blocks; items without a title are dropped and times are normalized to
// 12-hour clock plus period.
func sanitizeModelTasks(raw interface{}) []models.ScheduleBlock {
	var items []interface{}
	switch v := raw.(type) {
	case map[string]interface{}:
		if tasks, ok := v["tasks"].([]interface{}); ok {
			items = tasks
		} else if schedule, ok := v["schedule"].([]interface{}); ok {
			items = schedule
		}
	case []interface{}:
		items = v
	}

	tasks := make([]models.ScheduleBlock, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		title := strings.TrimSpace(stringify(entry["title"]))
		if title == "" {
			continue
		}
		if len(title) > 60 {
			title = title[:60]
		}

		var steps []string
		if rawSteps, ok := entry["steps"].([]interface{}); ok {
			for _, step := range rawSteps {
				if s := strings.TrimSpace(stringify(step)); s != "" {
					steps = append(steps, s)
				}
			}
		}

		start := strings.TrimSpace(stringify(entry["startTime"]))
		end := strings.TrimSpace(stringify(entry["endTime"]))
		period := strings.ToUpper(strings.TrimSpace(stringify(entry["period"])))
		if period != "AM" && period != "PM" {
			period = ""
		}

		if normStart, startPeriod := splitTimeAndPeriod(start); normStart != "" {
			start = normStart
			if period == "" {
				period = startPeriod
			}
		}
		if normEnd, endPeriod := splitTimeAndPeriod(end); normEnd != "" {
			end = normEnd
			if period == "" {
				period = endPeriod
			}
		}

		tasks = append(tasks, models.ScheduleBlock{
			Title:     title,
			Steps:     steps,
			StartTime: start,
			EndTime:   end,
			Period:    period,
			Hidden:    asBoolValue(entry["hidden"]),
			Completed: asBoolValue(entry["completed"]),
		})
	}
	return tasks
}

var clockRe = regexp.MustCompile(`(?i)(1[0-2]|0?[1-9])(?::([0-5][0-9]))?\s*(a\.?m\.?|p\.?m\.?)`)

// splitTimeAndPeriod extracts "h:mm" and AM/PM from loose time text.
func splitTimeAndPeriod(value string) (string, string) {
	match := clockRe.FindStringSubmatch(strings.TrimSpace(value))
	if match == nil {
		return "", ""
	}
	hour, _ := strconv.Atoi(match[1])
	minute := 0
	if match[2] != "" {
		minute, _ = strconv.Atoi(match[2])
	}
	period := "PM"
	if strings.HasPrefix(strings.ToLower(match[3]), "a") {
		period = "AM"
	}
	hour12 := hour % 12
	if hour12 == 0 {
		hour12 = 12
	}
	return fmt.Sprintf("%d:%02d", hour12, minute), period
}

var keywordSteps = map[string][]string{
	"homework": {
		"Gather notebooks and assignment list",
		"Work through each subject with focus blocks",
		"Review answers and pack everything away",
	},
	"exercise": {
		"Warm up and stretch",
		"Complete the main workout",
		"Cool down and hydrate",
	},
	"chores": {
		"Collect supplies for the chore",
		"Work through each area methodically",
		"Tidy up and put supplies back",
	},
	"breakfast": {
		"Set the table and gather ingredients",
		"Prepare and eat breakfast",
		"Clear dishes and wipe counters",
	},
	"dinner": {
		"Prep ingredients and cookware",
		"Cook and plate the meal",
		"Clean the kitchen and store leftovers",
	},
	"study": {
		"Review class notes or slides",
		"Work through practice problems",
		"Summarize what was learned",
	},
}

// heuristicTasks is the deterministic fallback: split the prompt into
// clauses, walk a clock forward in fixed 45-minute steps and attach canned
// step lists by keyword.
func heuristicTasks(prompt string) []models.ScheduleBlock {
	parts := promptChunks(prompt)
	if len(parts) == 0 {
		parts = []string{"Plan the day", "Focus block", "Wrap up and reflect"}
	}
	if len(parts) > maxTasks {
		parts = parts[:maxTasks]
	}

	hour, minute := startingClock(prompt)
	tasks := make([]models.ScheduleBlock, 0, len(parts))
	for idx, chunk := range parts {
		customHour, customMinute, cleaned := extractTimeFromChunk(chunk)
		if customHour >= 0 {
			hour, minute = customHour, customMinute
		}

		title := titleFromChunk(cleaned, idx)
		start, period := formatClock(hour, minute)
		endHour, endMinute := advanceClock(hour, minute, taskStepMinutes)
		end, _ := formatClock(endHour, endMinute)

		tasks = append(tasks, models.ScheduleBlock{
			Title:     title,
			Steps:     stepsFromChunk(cleaned, title),
			StartTime: start,
			EndTime:   end,
			Period:    period,
		})

		hour, minute = endHour, endMinute
	}
	return tasks
}

var chunkSplitRe = regexp.MustCompile(`[.\n;]+`)

func promptChunks(prompt string) []string {
	cleaned := strings.ReplaceAll(prompt, " - ", ". ")
	var parts []string
	for _, fragment := range chunkSplitRe.Split(cleaned, -1) {
		fragment = strings.Trim(fragment, " ,")
		if fragment != "" {
			parts = append(parts, fragment)
		}
	}
	return parts
}

func startingClock(prompt string) (int, int) {
	lower := strings.ToLower(prompt)
	switch {
	case strings.Contains(lower, "evening") || strings.Contains(lower, "night"):
		return 18, 0
	case strings.Contains(lower, "afternoon") || strings.Contains(lower, "after school"):
		return 13, 0
	case strings.Contains(lower, "morning") || strings.Contains(lower, "before school") || strings.Contains(lower, "wake"):
		return 7, 0
	default:
		return 8, 0
	}
}

func formatClock(hour24, minute int) (string, string) {
	period := "AM"
	if hour24 >= 12 {
		period = "PM"
	}
	hour12 := hour24 % 12
	if hour12 == 0 {
		hour12 = 12
	}
	return fmt.Sprintf("%d:%02d", hour12, minute), period
}

func advanceClock(hour24, minute, deltaMinutes int) (int, int) {
	total := (hour24*60 + minute + deltaMinutes) % (24 * 60)
	return total / 60, total % 60
}

var atWordRe = regexp.MustCompile(`(?i)\bat\b`)

// extractTimeFromChunk pulls an explicit "7 pm" style time out of a clause.
// Returns hour -1 when the clause has none.
func extractTimeFromChunk(chunk string) (int, int, string) {
	match := clockRe.FindStringSubmatch(chunk)
	if match == nil {
		return -1, -1, chunk
	}
	hour, _ := strconv.Atoi(match[1])
	minute := 0
	if match[2] != "" {
		minute, _ = strconv.Atoi(match[2])
	}
	periodRaw := strings.ToLower(match[3])
	if strings.HasPrefix(periodRaw, "p") && hour != 12 {
		hour += 12
	}
	if strings.HasPrefix(periodRaw, "a") && hour == 12 {
		hour = 0
	}

	cleaned := clockRe.ReplaceAllString(chunk, "")
	cleaned = atWordRe.ReplaceAllString(cleaned, "")
	cleaned = strings.Trim(whitespaceRun.ReplaceAllString(cleaned, " "), " ,")
	if cleaned == "" {
		cleaned = chunk
	}
	return hour, minute, cleaned
}

var titleCharsRe = regexp.MustCompile(`[^A-Za-z0-9 &/:-]`)

func titleFromChunk(chunk string, index int) string {
	cleaned := strings.TrimSpace(titleCharsRe.ReplaceAllString(chunk, ""))
	if cleaned == "" {
		cleaned = fmt.Sprintf("Task %d", index+1)
	}
	if len(cleaned) > 60 {
		cleaned = cleaned[:60]
	}
	return strings.Title(strings.TrimSpace(cleaned))
}

func stepsFromChunk(chunk, title string) []string {
	lower := strings.ToLower(chunk)
	for keyword, steps := range keywordSteps {
		if strings.Contains(lower, keyword) {
			return steps
		}
	}
	topic := strings.ToLower(title)
	return []string{
		fmt.Sprintf("Plan what is needed for %s", topic),
		fmt.Sprintf("Work through the main part of %s", topic),
		fmt.Sprintf("Review progress and clean up after %s", topic),
	}
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}

func asBoolValue(v interface{}) bool {
	b, _ := v.(bool)
	return b
}
