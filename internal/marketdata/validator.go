package marketdata

import (
	"fmt"
	"strings"
)

// ValidationSeverity distinguishes a hard rejection from an accepted
// soft-warning quote.
type ValidationSeverity int

const (
	SeverityHard ValidationSeverity = iota
	SeveritySoft
)

// ValidationIssue is one problem found with a quote.
type ValidationIssue struct {
	Severity ValidationSeverity
	Message  string
}

// ErrValidationFailed is returned when a quote has one or more hard issues.
type ErrValidationFailed struct {
	Issues []ValidationIssue
}

func (e *ErrValidationFailed) Error() string {
	msgs := make([]string, 0, len(e.Issues))
	for _, i := range e.Issues {
		msgs = append(msgs, i.Message)
	}
	return "quote validation failed: " + strings.Join(msgs, "; ")
}

// ValidatorConfig tunes the validator's strictness.
type ValidatorConfig struct {
	RejectNegativePrices bool
	RejectInvalidOHLC    bool
	MaxPrice             float64
	WarnOnZeroVolume     bool
	WarnOnMissingOHLC    bool
}

// DefaultValidatorConfig matches SPEC_FULL.md §4.C, except that missing or
// partial OHLC data produces no warning (WarnOnMissingOHLC is false).
func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{
		RejectNegativePrices: true,
		RejectInvalidOHLC:    true,
		MaxPrice:             1_000_000_000,
		WarnOnZeroVolume:     true,
		WarnOnMissingOHLC:    false,
	}
}

// Validator checks quotes for data-quality issues before they're persisted.
type Validator struct {
	cfg ValidatorConfig
}

// NewValidator builds a Validator with the default configuration.
func NewValidator() *Validator {
	return &Validator{cfg: DefaultValidatorConfig()}
}

// NewValidatorWithConfig builds a Validator with a custom configuration.
func NewValidatorWithConfig(cfg ValidatorConfig) *Validator {
	return &Validator{cfg: cfg}
}

// Validate returns the hard+soft issues found with quote, and the soft-only
// issues that should be logged when err is nil (quote is accepted).
func (v *Validator) Validate(q Quote) (issues []ValidationIssue, err error) {
	issues = append(issues, v.validateClosePrice(q)...)
	issues = append(issues, v.validateOHLC(q)...)
	issues = append(issues, v.validatePriceRange(q)...)
	issues = append(issues, v.validateVolume(q)...)

	var hard []ValidationIssue
	for _, i := range issues {
		if i.Severity == SeverityHard {
			hard = append(hard, i)
		}
	}
	if len(hard) > 0 {
		return issues, &ErrValidationFailed{Issues: hard}
	}
	return issues, nil
}

func (v *Validator) validateClosePrice(q Quote) []ValidationIssue {
	if v.cfg.RejectNegativePrices && q.Close < 0 {
		return []ValidationIssue{{Severity: SeverityHard, Message: fmt.Sprintf("negative close price: %v", q.Close)}}
	}
	return nil
}

func (v *Validator) validateOHLC(q Quote) []ValidationIssue {
	var issues []ValidationIssue

	switch {
	case q.Open == nil && q.High == nil && q.Low == nil:
		if v.cfg.WarnOnMissingOHLC {
			issues = append(issues, ValidationIssue{Severity: SeveritySoft, Message: "missing OHLC data (only close provided)"})
		}
		return issues
	case q.Open == nil || q.High == nil || q.Low == nil:
		if v.cfg.WarnOnMissingOHLC {
			issues = append(issues, ValidationIssue{Severity: SeveritySoft, Message: "partial OHLC data provided"})
		}
	}

	high := valueOr(q.High, q.Close)
	low := valueOr(q.Low, q.Close)
	open := valueOr(q.Open, q.Close)

	if v.cfg.RejectInvalidOHLC && high < low {
		issues = append(issues, ValidationIssue{Severity: SeverityHard, Message: fmt.Sprintf("high (%v) is less than low (%v)", high, low)})
	}
	if v.cfg.RejectInvalidOHLC && (open < low || open > high) {
		issues = append(issues, ValidationIssue{Severity: SeveritySoft, Message: fmt.Sprintf("open (%v) outside high/low range (%v-%v)", open, low, high)})
	}
	if v.cfg.RejectInvalidOHLC && (q.Close < low || q.Close > high) {
		issues = append(issues, ValidationIssue{Severity: SeveritySoft, Message: fmt.Sprintf("close (%v) outside high/low range (%v-%v)", q.Close, low, high)})
	}
	if v.cfg.RejectNegativePrices {
		if high < 0 {
			issues = append(issues, ValidationIssue{Severity: SeverityHard, Message: fmt.Sprintf("negative high price: %v", high)})
		}
		if low < 0 {
			issues = append(issues, ValidationIssue{Severity: SeverityHard, Message: fmt.Sprintf("negative low price: %v", low)})
		}
		if open < 0 {
			issues = append(issues, ValidationIssue{Severity: SeverityHard, Message: fmt.Sprintf("negative open price: %v", open)})
		}
	}
	return issues
}

func (v *Validator) validatePriceRange(q Quote) []ValidationIssue {
	if v.cfg.MaxPrice > 0 && q.Close > v.cfg.MaxPrice {
		return []ValidationIssue{{Severity: SeverityHard, Message: fmt.Sprintf("close price %v exceeds sanity max %v", q.Close, v.cfg.MaxPrice)}}
	}
	return nil
}

func (v *Validator) validateVolume(q Quote) []ValidationIssue {
	if v.cfg.WarnOnZeroVolume && q.Volume != nil && *q.Volume == 0 {
		return []ValidationIssue{{Severity: SeveritySoft, Message: "zero volume"}}
	}
	return nil
}

func valueOr(p *float64, fallback float64) float64 {
	if p == nil {
		return fallback
	}
	return *p
}
