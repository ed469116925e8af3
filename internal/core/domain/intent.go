package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type IntentStatus string

const (
	IntentStatusActive  IntentStatus = "active"
	IntentStatusMatched IntentStatus = "matched"
	IntentStatusExpired IntentStatus = "expired"
)

const (
	IntentRetention         = 30 * 24 * time.Hour
	MinExtractionConfidence = 0.7
	MaxPointValue           = 1000
)

// Categories is the fixed set of intent and campaign categories.
var Categories = []string{
	"금융", "부동산", "보험", "자동차", "교육", "의료", "여행", "전자제품",
	"쇼핑", "뷰티", "패션", "음식", "생활", "엔터테인먼트", "기타",
}

func IsKnownCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

type Intent struct {
	ID           string       `json:"id"`
	UserID       string       `json:"user_id"`
	Category     string       `json:"category"`
	Keyword      string       `json:"keyword"`
	Subcategory  string       `json:"subcategory,omitempty"`
	Description  string       `json:"description,omitempty"`
	Confidence   float64      `json:"confidence"`
	IsCommercial bool         `json:"is_commercial"`
	PointValue   int          `json:"point_value"`
	Status       IntentStatus `json:"status"`
	ExpiresAt    time.Time    `json:"expires_at"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Matchable reports whether the intent may be scored against campaigns at now.
func (i *Intent) Matchable(now time.Time) bool {
	if i == nil {
		return false
	}
	if i.Status != IntentStatusActive || !i.IsCommercial {
		return false
	}
	return i.ExpiresAt.IsZero() || i.ExpiresAt.After(now)
}

// ExtractedIntent is the structured output of the chat extraction pipeline.
type ExtractedIntent struct {
	Category     string  `json:"category"`
	Keyword      string  `json:"keyword"`
	Subcategory  string  `json:"subcategory,omitempty"`
	Description  string  `json:"description,omitempty"`
	Confidence   float64 `json:"confidence"`
	IsCommercial bool    `json:"is_commercial"`
	PointValue   int     `json:"point_value"`
}

// Normalize trims free-text fields and zeroes the point value of
// non-commercial intents.
func (e ExtractedIntent) Normalize() ExtractedIntent {
	e.Category = strings.TrimSpace(e.Category)
	e.Keyword = strings.TrimSpace(e.Keyword)
	e.Subcategory = strings.TrimSpace(e.Subcategory)
	e.Description = strings.TrimSpace(e.Description)
	if !e.IsCommercial {
		e.PointValue = 0
	}
	return e
}

func (e ExtractedIntent) Validate() error {
	const op = "validate intent"
	switch {
	case !IsKnownCategory(e.Category):
		return WrapError(ErrInvalidInput, op, fmt.Errorf("unknown category %q", e.Category))
	case e.Keyword == "":
		return WrapError(ErrInvalidInput, op, errors.New("keyword is required"))
	case e.Confidence < 0 || e.Confidence > 1:
		return WrapError(ErrInvalidInput, op, fmt.Errorf("confidence %.3f out of range", e.Confidence))
	case e.Confidence < MinExtractionConfidence:
		return WrapError(ErrInvalidInput, op, fmt.Errorf("confidence %.3f below %.2f", e.Confidence, MinExtractionConfidence))
	case e.PointValue < 0 || e.PointValue > MaxPointValue:
		return WrapError(ErrInvalidInput, op, fmt.Errorf("point value %d out of range", e.PointValue))
	case !e.IsCommercial && e.PointValue != 0:
		return WrapError(ErrInvalidInput, op, errors.New("non-commercial intent cannot carry points"))
	}
	return nil
}
