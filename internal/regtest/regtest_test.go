package regtest_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archsmith/internal/regtest"
)

func summary(failed, wrong, total int) string {
	return fmt.Sprintf(`--------------------------------- Summary --------------------------------
Number of FAILED  tests %d
Number of WRONG   tests %d
Number of CORRECT tests 18
Number of NEW     tests 1
Total number of   tests %d
GREPME 0 1 18 1 20 X
`, failed, wrong, total)
}

func requireAnalysisError(t *testing.T, err error) *regtest.AnalysisError {
	t.Helper()
	require.Error(t, err)
	var ae *regtest.AnalysisError
	require.True(t, errors.As(err, &ae), "want *regtest.AnalysisError, got %T: %v", err, err)
	return ae
}

func TestAnalyzeCounts(t *testing.T) {
	o, err := regtest.Analyze(summary(0, 1, 20), false)
	require.NoError(t, err)

	assert.Equal(t, 20, o.Total)
	assert.Equal(t, regtest.Count{N: 0, Found: true}, o.Failed)
	assert.Equal(t, regtest.Count{N: 1, Found: true}, o.Wrong)
	assert.Equal(t, regtest.Count{N: 1, Found: true}, o.New)
	assert.Equal(t, regtest.Count{N: 18, Found: true}, o.Correct)
	assert.False(t, o.IgnoreFailures)
}

func TestAnalyzeIsCaseInsensitive(t *testing.T) {
	raw := "number of failed tests 3\nNUMBER OF WRONG TESTS 0\nnumber of  tests 7\n"
	o, err := regtest.Analyze(raw, true)
	require.NoError(t, err)

	assert.Equal(t, 7, o.Total)
	assert.Equal(t, 3, o.Failed.N)
	assert.Equal(t, 0, o.Wrong.N)
	assert.True(t, o.IgnoreFailures)
}

func TestAnalyzeMissingTotal(t *testing.T) {
	raw := "number of FAILED tests 0\nnumber of WRONG tests 1\n"
	_, err := regtest.Analyze(raw, false)
	ae := requireAnalysisError(t, err)
	assert.Equal(t, regtest.CategoryTotal, ae.Category)

	_, err = regtest.Analyze("", false)
	requireAnalysisError(t, err)
}

func TestAnalyzeMissingCategoryIsUnavailable(t *testing.T) {
	o, err := regtest.Analyze("number of FAILED tests 0\nnumber of  tests 20\n", false)
	require.NoError(t, err)

	assert.True(t, o.Failed.Found)
	assert.False(t, o.Wrong.Found)
	assert.False(t, o.New.Found)
	assert.Equal(t, "unavailable", o.New.String())
}

func TestAnalyzeOverflowingCount(t *testing.T) {
	_, err := regtest.Analyze("number of  tests 99999999999999999999999\n", false)
	ae := requireAnalysisError(t, err)
	assert.Equal(t, regtest.CategoryTotal, ae.Category)
}

func TestEvaluatePolicy(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		ignore   bool
		accept   bool
		severity map[string]regtest.Severity
	}{
		{
			name:   "few wrong",
			raw:    "... number of FAILED tests 0 ... number of WRONG tests 1 ... number of  tests 20 ...",
			accept: true,
			severity: map[string]regtest.Severity{
				regtest.ReasonFailed: regtest.SeverityInfo,
				regtest.ReasonWrong:  regtest.SeverityInfo,
			},
		},
		{
			name:   "too many wrong",
			raw:    "... number of FAILED tests 0 ... number of WRONG tests 5 ... number of  tests 20 ...",
			accept: false,
			severity: map[string]regtest.Severity{
				regtest.ReasonFailed: regtest.SeverityInfo,
				regtest.ReasonWrong:  regtest.SeverityReject,
			},
		},
		{
			name:   "wrong at threshold",
			raw:    "number of FAILED tests 0\nnumber of WRONG tests 2\nnumber of  tests 20\n",
			accept: true,
			severity: map[string]regtest.Severity{
				regtest.ReasonWrong: regtest.SeverityInfo,
			},
		},
		{
			name:   "failed",
			raw:    summary(2, 0, 20),
			accept: false,
			severity: map[string]regtest.Severity{
				regtest.ReasonFailed: regtest.SeverityReject,
			},
		},
		{
			name:   "failed ignored",
			raw:    summary(2, 0, 20),
			ignore: true,
			accept: true,
			severity: map[string]regtest.Severity{
				regtest.ReasonFailed: regtest.SeverityWarning,
			},
		},
		{
			name:   "no tests",
			raw:    "number of FAILED tests 0\nnumber of WRONG tests 3\nnumber of  tests 0\n",
			accept: true,
			severity: map[string]regtest.Severity{
				regtest.ReasonWrong: regtest.SeverityInfo,
			},
		},
		{
			name:   "new tests warn",
			raw:    summary(0, 0, 20),
			accept: true,
			severity: map[string]regtest.Severity{
				regtest.ReasonNew:     regtest.SeverityWarning,
				regtest.ReasonCorrect: regtest.SeverityInfo,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := regtest.Analyze(tt.raw, tt.ignore)
			require.NoError(t, err)
			v, err := regtest.Evaluate(o)
			require.NoError(t, err)

			assert.Equal(t, tt.accept, v.Accept)
			require.Len(t, v.Reasons, 4)
			got := make(map[string]regtest.Severity, len(v.Reasons))
			for _, r := range v.Reasons {
				got[r.Category] = r.Severity
			}
			for cat, want := range tt.severity {
				assert.Equal(t, want, got[cat], cat)
			}
		})
	}
}

func TestEvaluateReasonOrder(t *testing.T) {
	o, err := regtest.Analyze(summary(0, 0, 20), false)
	require.NoError(t, err)
	v, err := regtest.Evaluate(o)
	require.NoError(t, err)

	var order []string
	for _, r := range v.Reasons {
		order = append(order, r.Category)
	}
	assert.Equal(t, []string{regtest.ReasonFailed, regtest.ReasonWrong, regtest.ReasonNew, regtest.ReasonCorrect}, order)
	assert.Equal(t, "accepted", v.Summary())
	assert.Empty(t, v.Rejections())
}

func TestEvaluateIgnoredFailureMentionsCount(t *testing.T) {
	o, err := regtest.Analyze(summary(2, 0, 20), true)
	require.NoError(t, err)
	v, err := regtest.Evaluate(o)
	require.NoError(t, err)

	assert.True(t, v.Accept)
	assert.Contains(t, v.Reasons[0].Message, "2 / 20 failed")
}

func TestEvaluateWrongReason(t *testing.T) {
	o, err := regtest.Analyze(summary(0, 5, 20), false)
	require.NoError(t, err)
	v, err := regtest.Evaluate(o)
	require.NoError(t, err)

	rs := v.Rejections()
	require.Len(t, rs, 1)
	assert.Equal(t, regtest.ReasonWrong, rs[0].Category)
	assert.Contains(t, rs[0].Message, "5 / 20 wrong")
	assert.Contains(t, v.Summary(), "rejected: ")
}

func TestEvaluateRequiresFailedAndWrong(t *testing.T) {
	o, err := regtest.Analyze("number of WRONG tests 0\nnumber of  tests 20\n", false)
	require.NoError(t, err)
	_, err = regtest.Evaluate(o)
	ae := requireAnalysisError(t, err)
	assert.Equal(t, regtest.CategoryFailed, ae.Category)

	o, err = regtest.Analyze("number of FAILED tests 0\nnumber of  tests 20\n", false)
	require.NoError(t, err)
	_, err = regtest.Evaluate(o)
	ae = requireAnalysisError(t, err)
	assert.Equal(t, regtest.CategoryWrong, ae.Category)
}

func TestEvaluateReportsUnavailableNew(t *testing.T) {
	o, err := regtest.Analyze("number of FAILED tests 0\nnumber of WRONG tests 0\nnumber of  tests 20\n", false)
	require.NoError(t, err)
	v, err := regtest.Evaluate(o)
	require.NoError(t, err)

	assert.True(t, v.Accept)
	assert.Contains(t, v.Reasons[2].Message, "unavailable")
	assert.Equal(t, regtest.SeverityInfo, v.Reasons[2].Severity)
}
