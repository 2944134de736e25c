package regtest

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ReportHeader is the YAML front matter of a verdict report.
type ReportHeader struct {
	Arch    string `yaml:"arch,omitempty"`
	Accept  bool   `yaml:"accept"`
	Total   int    `yaml:"total"`
	Failed  string `yaml:"failed"`
	Wrong   string `yaml:"wrong"`
	New     string `yaml:"new"`
	Correct string `yaml:"correct"`
}

// WriteReport renders v as a markdown document with YAML front matter.
func WriteReport(arch string, o Outcome, v Verdict) ([]byte, error) {
	h := ReportHeader{
		Arch:    arch,
		Accept:  v.Accept,
		Total:   o.Total,
		Failed:  o.Failed.String(),
		Wrong:   o.Wrong.String(),
		New:     o.New.String(),
		Correct: o.Correct.String(),
	}
	fm, err := yaml.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("report: marshal: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(fm)
	buf.WriteString("---\n")
	buf.WriteString("# Regression test report\n\n")
	fmt.Fprintf(&buf, "%s\n\n", v.Summary())
	buf.WriteString("| category | severity | message |\n")
	buf.WriteString("|---|---|---|\n")
	for _, r := range v.Reasons {
		fmt.Fprintf(&buf, "| %s | %s | %s |\n", r.Category, r.Severity, strings.ReplaceAll(r.Message, "|", `\|`))
	}
	return buf.Bytes(), nil
}

// ParseReport splits a report into its header and markdown body. The
// document must begin with "---\n".
func ParseReport(data []byte) (ReportHeader, []byte, error) {
	const delim = "---\n"
	if !bytes.HasPrefix(data, []byte(delim)) {
		return ReportHeader{}, nil, fmt.Errorf("report: missing opening --- delimiter")
	}
	rest := data[len(delim):]
	idx := bytes.Index(rest, []byte("\n---"))
	if idx < 0 {
		return ReportHeader{}, nil, fmt.Errorf("report: missing closing --- delimiter")
	}
	fm := rest[:idx]
	body := rest[idx+4:]
	if len(body) > 0 && body[0] == '\n' {
		body = body[1:]
	}

	var h ReportHeader
	if err := yaml.Unmarshal(fm, &h); err != nil {
		return ReportHeader{}, nil, fmt.Errorf("report: unmarshal header: %w", err)
	}
	return h, body, nil
}
