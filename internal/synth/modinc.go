package synth

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"archsmith/internal/facts"
	"archsmith/internal/runner"
)

// archTagPrefix is the platform part of every architecture tag.
const archTagPrefix = "Linux-x86-64-"

// ArchTag returns the architecture tag for tc, e.g. "Linux-x86-64-foss".
func ArchTag(tc facts.Toolchain) string {
	return archTagPrefix + tc.Name
}

// ArchFileName returns the artifact name, "<tag>.<variant>".
func ArchFileName(tc facts.Toolchain, v facts.Variant) string {
	return ArchTag(tc) + "." + string(v)
}

// ModIncCommand returns the command that compiles one vendor module source
// into dir using the Fortran 77 compiler f77.
func ModIncCommand(f77, dir, source string) (name string, args []string, err error) {
	f77 = strings.TrimSpace(f77)
	switch {
	case f77 == "":
		return "", nil, errors.New("F77 is not set")
	case strings.HasSuffix(f77, "ifort"):
		return f77, []string{"-module", dir, "-c", source}, nil
	case path.Base(f77) == "gfortran" || path.Base(f77) == "mpif77":
		return f77, []string{"-J" + dir, "-c", source}, nil
	default:
		return "", nil, fmt.Errorf("unknown F77 compiler %q", f77)
	}
}

// PrepareModInc compiles every source into dir and returns dir, ready to use
// as Request.ModIncPath.
func PrepareModInc(ctx context.Context, r runner.Runner, f77, dir string, sources []string) (string, error) {
	if len(sources) == 0 {
		return "", errors.New("prepare modinc: no module sources")
	}
	for _, src := range sources {
		name, args, err := ModIncCommand(f77, dir, src)
		if err != nil {
			return "", fmt.Errorf("prepare modinc: %w", err)
		}
		if _, err := r.Run(ctx, dir, name, args...); err != nil {
			return "", fmt.Errorf("prepare modinc %s: %w", path.Base(src), err)
		}
	}
	return dir, nil
}
