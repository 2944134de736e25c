// Package regtest reads the summary printed by the regression-test harness
// and decides whether a build is acceptable.
//
// Analyze extracts the per-category counts from the raw harness output;
// Evaluate applies the acceptance policy to them. A rejected build is a
// normal Verdict, not an error: errors are reserved for output that cannot
// be analyzed at all.
package regtest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Category is a test-result class in the harness summary.
type Category string

const (
	CategoryTotal   Category = ""
	CategoryFailed  Category = "failed"
	CategoryWrong   Category = "wrong"
	CategoryNew     Category = "new"
	CategoryCorrect Category = "correct"
)

// Categories are the result classes, in report order.
var Categories = []Category{CategoryFailed, CategoryWrong, CategoryNew, CategoryCorrect}

func (c Category) String() string {
	if c == CategoryTotal {
		return "total"
	}
	return string(c)
}

// summaryPattern matches "number of <CATEGORY> tests <n>"; the total line
// has no category word.
const summaryPattern = `(?im)number\s+of\s+%s\s+tests\s+([0-9]+)`

var patterns = func() map[Category]*regexp.Regexp {
	m := make(map[Category]*regexp.Regexp, len(Categories)+1)
	for _, c := range append([]Category{CategoryTotal}, Categories...) {
		m[c] = regexp.MustCompile(fmt.Sprintf(summaryPattern, regexp.QuoteMeta(strings.ToUpper(string(c)))))
	}
	return m
}()

// Count is a category count that may be missing from the summary.
type Count struct {
	N     int
	Found bool
}

func (c Count) String() string {
	if !c.Found {
		return "unavailable"
	}
	return strconv.Itoa(c.N)
}

// Outcome holds the counts extracted from one harness run.
type Outcome struct {
	Total   int
	Failed  Count
	Wrong   Count
	New     Count
	Correct Count
	// IgnoreFailures downgrades failed tests from a rejection to a warning.
	IgnoreFailures bool
}

// Count returns the count for c. The total is always found.
func (o Outcome) Count(c Category) Count {
	switch c {
	case CategoryFailed:
		return o.Failed
	case CategoryWrong:
		return o.Wrong
	case CategoryNew:
		return o.New
	case CategoryCorrect:
		return o.Correct
	default:
		return Count{N: o.Total, Found: true}
	}
}

// AnalysisError reports harness output that cannot be analyzed.
type AnalysisError struct {
	Category Category
	Msg      string
	Err      error
}

func (e *AnalysisError) Error() string {
	msg := fmt.Sprintf("regtest: %s tests: %s", e.Category, e.Msg)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// Analyze extracts the summary counts from raw harness output. A missing
// total is an error; any other missing category is recorded as unavailable.
func Analyze(raw string, ignoreFailures bool) (Outcome, error) {
	total, err := extract(raw, CategoryTotal)
	if err != nil {
		return Outcome{}, err
	}
	if !total.Found {
		return Outcome{}, &AnalysisError{Category: CategoryTotal, Msg: "total number of tests not found in summary"}
	}

	out := Outcome{Total: total.N, IgnoreFailures: ignoreFailures}
	for _, c := range Categories {
		n, err := extract(raw, c)
		if err != nil {
			return Outcome{}, err
		}
		switch c {
		case CategoryFailed:
			out.Failed = n
		case CategoryWrong:
			out.Wrong = n
		case CategoryNew:
			out.New = n
		case CategoryCorrect:
			out.Correct = n
		}
	}
	return out, nil
}

func extract(raw string, c Category) (Count, error) {
	m := patterns[c].FindStringSubmatch(raw)
	if m == nil {
		return Count{}, nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return Count{}, &AnalysisError{Category: c, Msg: "bad count " + strconv.Quote(m[1]), Err: err}
	}
	return Count{N: n, Found: true}, nil
}
