// Package capture turns free text into journal entries.
package capture

import (
	"strings"
)

// Kind is the outcome of classification
type Kind string

const (
	KindTask Kind = "task"
	KindIdea Kind = "idea"
)

// Classifier decides whether text is a task or an idea
type Classifier interface {
	Classify(text string) Kind
}

// DefaultTaskKeywords mark text as actionable
var DefaultTaskKeywords = []string{"задача", "сделать", "нужно", "должен"}

// KeywordClassifier picks KindTask when any keyword occurs in the
// lower-cased text. Misclassification is a UX outcome, not an error.
type KeywordClassifier struct {
	keywords []string
}

// NewKeywordClassifier builds a classifier; no keywords means the defaults
func NewKeywordClassifier(keywords ...string) *KeywordClassifier {
	if len(keywords) == 0 {
		keywords = DefaultTaskKeywords
	}
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lowered = append(lowered, k)
		}
	}
	return &KeywordClassifier{keywords: lowered}
}

// Classify implements Classifier
func (c *KeywordClassifier) Classify(text string) Kind {
	lower := strings.ToLower(text)
	for _, k := range c.keywords {
		if strings.Contains(lower, k) {
			return KindTask
		}
	}
	return KindIdea
}

// ClassifierFunc adapts a function to Classifier
type ClassifierFunc func(text string) Kind

// Classify implements Classifier
func (f ClassifierFunc) Classify(text string) Kind { return f(text) }
