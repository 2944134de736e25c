package facts

import (
	"fmt"
	"strings"

	"archsmith/internal/version"
)

// Question describes a single prompt used to build a facts file
// interactively. Validate, when set, rejects an answer before the next
// question is asked.
type Question struct {
	Key      string
	Prompt   string
	Validate func(answer string) error
}

// Questions are asked by `archsmith init`, in order.
var Questions = []Question{
	{Key: "name", Prompt: "Toolchain name (e.g. foss-2015a)", Validate: requireAnswer},
	{Key: "family", Prompt: "Compiler family (GNU or Intel)", Validate: validateFamily},
	{Key: "compiler_version", Prompt: "Compiler version", Validate: validateVersion},
	{Key: "mpi_family", Prompt: "MPI implementation (blank to detect from libraries)"},
	{Key: "variant", Prompt: "Build variant (popt or psmp)", Validate: validateVariant},
	{Key: "openmp_flag", Prompt: "OpenMP flag (blank for none)"},
}

func requireAnswer(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("an answer is required")
	}
	return nil
}

// parseFamily accepts the family names case-insensitively, plus "gcc".
func parseFamily(s string) (Family, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gnu", "gcc":
		return FamilyGNU, true
	case "intel":
		return FamilyIntel, true
	}
	return "", false
}

func validateFamily(s string) error {
	if _, ok := parseFamily(s); !ok {
		return fmt.Errorf("unknown compiler family %q, expected GNU or Intel", strings.TrimSpace(s))
	}
	return nil
}

// validateVersion allows a blank answer; a GNU toolchain without a version is
// treated as current.
func validateVersion(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	_, err := version.Parse(s)
	return err
}

// validateVariant allows a blank answer, which keeps the default variant.
func validateVariant(s string) error {
	v := Variant(strings.TrimSpace(s))
	if v == "" || v.Valid() {
		return nil
	}
	return fmt.Errorf("unknown build type %q, known types are %v", v, Variants)
}

// FromAnswers builds facts from prompt answers keyed by Question.Key. Every
// answer is checked with its question's validator; whether the combination
// is buildable is decided at synthesis time.
func FromAnswers(answers map[string]string) (*Facts, error) {
	get := func(k string) string { return strings.TrimSpace(answers[k]) }
	for _, q := range Questions {
		if q.Validate == nil {
			continue
		}
		if err := q.Validate(get(q.Key)); err != nil {
			return nil, fmt.Errorf("%s: %w", q.Key, err)
		}
	}

	f := Defaults()
	f.Libraries = Catalog{}
	f.Toolchain.Name = get("name")
	f.Toolchain.Family, _ = parseFamily(get("family"))
	f.Toolchain.CompilerVersion = get("compiler_version")
	f.Toolchain.MPIFamily = get("mpi_family")
	f.Toolchain.OpenMPFlag = get("openmp_flag")
	if v := get("variant"); v != "" {
		f.Variant = Variant(v)
	}
	return &f, nil
}
