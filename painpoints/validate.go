package painpoints

import (
	"errors"
	"fmt"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

func (s Sentiment) Valid() bool {
	switch s {
	case SentimentVeryNegative, SentimentNegative, SentimentNeutral, SentimentPositive, SentimentVeryPositive:
		return true
	}
	return false
}

func (i Impact) Valid() bool {
	switch i {
	case ImpactLow, ImpactMedium, ImpactHigh:
		return true
	}
	return false
}

// Validate reports every broken invariant of p, joined.
func (p PainPoint) Validate() error {
	var errs []error
	if !p.Severity.Valid() {
		errs = append(errs, invalid("severity", "unknown value %q", p.Severity))
	}
	if p.Frequency < 1 {
		errs = append(errs, invalid("frequency", "must be >= 1, got %d", p.Frequency))
	}
	if len(p.ExampleQuotes) > MaxExampleQuotes {
		errs = append(errs, invalid("exampleQuotes", "at most %d allowed, got %d", MaxExampleQuotes, len(p.ExampleQuotes)))
	}
	return errors.Join(errs...)
}

func (a ChunkAnalysis) Validate() error {
	var errs []error
	if a.TotalPostsAnalyzed < 0 {
		errs = append(errs, invalid("totalPostsAnalyzed", "must be >= 0, got %d", a.TotalPostsAnalyzed))
	}
	if len(a.TopThemes) > MaxTopThemes {
		errs = append(errs, invalid("topThemes", "at most %d allowed, got %d", MaxTopThemes, len(a.TopThemes)))
	}
	if !a.OverallSentiment.Valid() {
		errs = append(errs, invalid("overallSentiment", "unknown value %q", a.OverallSentiment))
	}
	for i, p := range a.PainPoints {
		if err := p.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("painPoints[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func (c ConsolidatedPainPoint) Validate() error {
	var errs []error
	if !c.Severity.Valid() {
		errs = append(errs, invalid("severity", "unknown value %q", c.Severity))
	}
	if c.TotalMentions < 0 {
		errs = append(errs, invalid("totalMentions", "must be >= 0, got %d", c.TotalMentions))
	}
	if c.Priority < MinPriority || c.Priority > MaxPriority {
		errs = append(errs, invalid("priority", "must be in [%d,%d], got %d", MinPriority, MaxPriority, c.Priority))
	}
	return errors.Join(errs...)
}

func (f FeatureIdea) Validate() error {
	if !f.EstimatedImpact.Valid() {
		return invalid("estimatedImpact", "unknown value %q", f.EstimatedImpact)
	}
	return nil
}

func (a FinalAnalysis) Validate() error {
	var errs []error
	if a.TotalPostsAnalyzed < 0 {
		errs = append(errs, invalid("totalPostsAnalyzed", "must be >= 0, got %d", a.TotalPostsAnalyzed))
	}
	if len(a.TopFeatureIdeas) > MaxFeatureIdeas {
		errs = append(errs, invalid("topFeatureIdeas", "at most %d allowed, got %d", MaxFeatureIdeas, len(a.TopFeatureIdeas)))
	}
	for i, c := range a.ConsolidatedPainPoints {
		if err := c.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("consolidatedPainPoints[%d]: %w", i, err))
		}
	}
	for i, f := range a.TopFeatureIdeas {
		if err := f.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("topFeatureIdeas[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
