package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

const maxCategoryLength = 50

// Advice reply: {"analysis": "...", "advice": ["...", ...]}
type adviceReply struct {
	Analysis *string  `json:"analysis"`
	Advice   []string `json:"advice"`
}

// Simulation reply: {"analysis": "...", "impact": "..."}
type simulationReply struct {
	Analysis *string `json:"analysis"`
	Impact   *string `json:"impact"`
}

type categoryReply struct {
	Category *string `json:"category"`
}

// ParseCategory extracts the label from a categorization reply.
func ParseCategory(text string) (string, error) {
	var r categoryReply
	if err := decodeStrict(text, &r); err != nil {
		return "", err
	}
	if r.Category == nil {
		return "", fmt.Errorf("%w: missing category", ErrMalformedResponse)
	}
	label := strings.TrimSpace(*r.Category)
	if label == "" {
		return "", fmt.Errorf("%w: empty category", ErrMalformedResponse)
	}
	if utf8.RuneCountInString(label) > maxCategoryLength {
		return "", fmt.Errorf("%w: category longer than %d characters", ErrMalformedResponse, maxCategoryLength)
	}
	return label, nil
}

// ParseAdvice extracts the analysis and the non-blank tips.
func ParseAdvice(text string) (string, []string, error) {
	var r adviceReply
	if err := decodeStrict(text, &r); err != nil {
		return "", nil, err
	}
	if r.Analysis == nil || r.Advice == nil {
		return "", nil, fmt.Errorf("%w: advice reply needs analysis and advice", ErrMalformedResponse)
	}

	tips := make([]string, 0, len(r.Advice))
	for _, tip := range r.Advice {
		if tip = strings.TrimSpace(tip); tip != "" {
			tips = append(tips, tip)
		}
	}
	analysis := strings.TrimSpace(*r.Analysis)
	if analysis == "" && len(tips) == 0 {
		return "", nil, fmt.Errorf("%w: empty advice", ErrMalformedResponse)
	}
	return analysis, tips, nil
}

// ParseSimulation extracts the analysis and impact of a scenario reply.
func ParseSimulation(text string) (string, string, error) {
	var r simulationReply
	if err := decodeStrict(text, &r); err != nil {
		return "", "", err
	}
	if r.Analysis == nil || r.Impact == nil {
		return "", "", fmt.Errorf("%w: simulation reply needs analysis and impact", ErrMalformedResponse)
	}
	analysis, impact := strings.TrimSpace(*r.Analysis), strings.TrimSpace(*r.Impact)
	if analysis == "" && impact == "" {
		return "", "", fmt.Errorf("%w: empty simulation", ErrMalformedResponse)
	}
	return analysis, impact, nil
}

// decodeStrict decodes exactly one JSON object. A markdown code fence around
// the object is tolerated; any other wrapping is not.
func decodeStrict(text string, v any) error {
	body := stripFence(strings.TrimSpace(text))
	if body == "" {
		return fmt.Errorf("%w: empty reply", ErrMalformedResponse)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON object", ErrMalformedResponse)
	}
	return nil
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
