package regtest

import (
	"fmt"
	"strings"
)

// Severity ranks a Reason.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityReject  Severity = "reject"
)

// Reason names used in a Verdict, in the order they are reported.
const (
	ReasonFailed  = "failed"
	ReasonWrong   = "wrong"
	ReasonNew     = "new-high"
	ReasonCorrect = "correct"
)

// MaxWrongRatio is the largest acceptable share of wrong tests.
const MaxWrongRatio = 0.10

// Reason is one observation about an Outcome.
type Reason struct {
	Category string   `yaml:"category"`
	Severity Severity `yaml:"severity"`
	Message  string   `yaml:"message"`
}

// Verdict is the acceptance decision for one harness run. Every category
// contributes a reason whether or not it decided the verdict.
type Verdict struct {
	Accept  bool     `yaml:"accept"`
	Reasons []Reason `yaml:"reasons"`
}

// Rejections returns the reasons that caused a reject.
func (v Verdict) Rejections() []Reason {
	var rs []Reason
	for _, r := range v.Reasons {
		if r.Severity == SeverityReject {
			rs = append(rs, r)
		}
	}
	return rs
}

// Summary is a one-line description of v.
func (v Verdict) Summary() string {
	if v.Accept {
		return "accepted"
	}
	msgs := make([]string, 0, len(v.Reasons))
	for _, r := range v.Rejections() {
		msgs = append(msgs, r.Message)
	}
	return "rejected: " + strings.Join(msgs, "; ")
}

type rule struct {
	reason string
	eval   func(o Outcome) (Reason, error)
}

// policy is applied in report order.
var policy = []rule{
	{ReasonFailed, evalFailed},
	{ReasonWrong, evalWrong},
	{ReasonNew, evalNew},
	{ReasonCorrect, evalCorrect},
}

// Evaluate applies the acceptance policy. Failed and wrong counts are
// required; new and correct counts are reported even when unavailable.
func Evaluate(o Outcome) (Verdict, error) {
	v := Verdict{Accept: true, Reasons: make([]Reason, 0, len(policy))}
	for _, r := range policy {
		reason, err := r.eval(o)
		if err != nil {
			return Verdict{}, err
		}
		reason.Category = r.reason
		if reason.Severity == SeverityReject {
			v.Accept = false
		}
		v.Reasons = append(v.Reasons, reason)
	}
	return v, nil
}

func reported(o Outcome, c Category) string {
	return fmt.Sprintf("regression test reported %s / %d %s tests", o.Count(c), o.Total, c)
}

func evalFailed(o Outcome) (Reason, error) {
	if !o.Failed.Found {
		return Reason{}, &AnalysisError{Category: CategoryFailed, Msg: "number of failed tests not found in summary"}
	}
	msg := reported(o, CategoryFailed)
	switch {
	case o.Failed.N > 0 && !o.IgnoreFailures:
		return Reason{Severity: SeverityReject, Message: msg}, nil
	case o.Failed.N > 0:
		return Reason{Severity: SeverityWarning, Message: msg + " (ignored)"}, nil
	default:
		return Reason{Severity: SeverityInfo, Message: msg}, nil
	}
}

func evalWrong(o Outcome) (Reason, error) {
	if !o.Wrong.Found {
		return Reason{}, &AnalysisError{Category: CategoryWrong, Msg: "number of wrong tests not found in summary"}
	}
	msg := reported(o, CategoryWrong)
	if o.Total > 0 {
		ratio := float64(o.Wrong.N) / float64(o.Total)
		if ratio > MaxWrongRatio {
			return Reason{
				Severity: SeverityReject,
				Message:  fmt.Sprintf("%s (%.0f%% > %.0f%%)", msg, ratio*100, MaxWrongRatio*100),
			}, nil
		}
	}
	return Reason{Severity: SeverityInfo, Message: msg}, nil
}

func evalNew(o Outcome) (Reason, error) {
	if o.New.Found && o.New.N > 0 {
		return Reason{Severity: SeverityWarning, Message: reported(o, CategoryNew)}, nil
	}
	return Reason{Severity: SeverityInfo, Message: reported(o, CategoryNew)}, nil
}

func evalCorrect(o Outcome) (Reason, error) {
	return Reason{Severity: SeverityInfo, Message: reported(o, CategoryCorrect)}, nil
}
