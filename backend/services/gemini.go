package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"lms/backend/config"

	"github.com/go-resty/resty/v2"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// GeminiService calls the generative-text API to draft quiz and exam
// question sets and course copy. Its output is untrusted content: callers
// persist it through the same tables as manually authored questions, and
// scoring always reads correctness from storage, never from this payload.
type GeminiService struct {
	Cfg    *config.Config
	client *resty.Client
}

func NewGeminiService(cfg *config.Config) *GeminiService {
	return &GeminiService{
		Cfg:    cfg,
		client: resty.New().SetTimeout(45 * time.Second),
	}
}

// GeneratedOption mirrors the JSON shape the model is instructed to return.
type GeneratedOption struct {
	Text      string `json:"option_text"`
	IsCorrect bool   `json:"is_correct"`
}

type GeneratedQuestion struct {
	Text    string            `json:"question_text"`
	Options []GeneratedOption `json:"options"`
}

// GenerateQuestions asks for count multiple-choice questions on topic, each
// with four options and at least one correct one. Single-shot request, no
// retries; failures propagate to the caller.
func (gs *GeminiService) GenerateQuestions(topic string, count int) ([]GeneratedQuestion, error) {
	prompt := fmt.Sprintf(`You are preparing an internal training assessment.
Write %d multiple-choice questions for a course titled %q.
Each question must have exactly 4 options with exactly one correct option.
Reply EXCLUSIVELY with a JSON array of objects shaped like:
[{"question_text": "...", "options": [{"option_text": "...", "is_correct": false}]}]`, count, topic)

	raw, err := gs.generate(prompt)
	if err != nil {
		return nil, err
	}

	var questions []GeneratedQuestion
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &questions); err != nil {
		return nil, fmt.Errorf("unexpected AI response shape: %w", err)
	}
	if err := validateQuestions(questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// GenerateDescription drafts descriptive copy for a course title.
func (gs *GeminiService) GenerateDescription(title string) (string, error) {
	prompt := fmt.Sprintf(`Write a concise two-paragraph description for an
internal training course titled %q. Reply with plain text only.`, title)

	raw, err := gs.generate(prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (gs *GeminiService) generate(prompt string) (string, error) {
	if gs.Cfg.GeminiAPIKey == "" {
		return "", errors.New("gemini API key is not configured")
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", geminiBaseURL, gs.Cfg.GeminiModel, gs.Cfg.GeminiAPIKey)

	body := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": prompt}}},
		},
	}

	var parsed geminiResponse
	resp, err := gs.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&parsed).
		Post(url)
	if err != nil {
		return "", fmt.Errorf("call gemini: %w", err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("gemini API returned %d: %s", resp.StatusCode(), resp.String())
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini API returned no candidates")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

// stripCodeFence removes the markdown fence the model sometimes wraps JSON in.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func validateQuestions(questions []GeneratedQuestion) error {
	if len(questions) == 0 {
		return errors.New("AI returned no questions")
	}
	for i, q := range questions {
		if strings.TrimSpace(q.Text) == "" {
			return fmt.Errorf("question %d has no text", i+1)
		}
		if len(q.Options) < 2 {
			return fmt.Errorf("question %d has fewer than two options", i+1)
		}
		correct := 0
		for _, opt := range q.Options {
			if strings.TrimSpace(opt.Text) == "" {
				return fmt.Errorf("question %d has an empty option", i+1)
			}
			if opt.IsCorrect {
				correct++
			}
		}
		if correct == 0 {
			return fmt.Errorf("question %d has no correct option", i+1)
		}
	}
	return nil
}
