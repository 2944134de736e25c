package synth

import (
	"context"
	"path"
	"strings"

	"archsmith/internal/facts"
)

// mpiFeatureDefines are always on: the build is MPI-parallel with
// BLACS/ScaLAPACK and the built-in FFT.
const mpiFeatureDefines = "-D__parallel -D__BLACS -D__SCALAPACK -D__FFTSG"

// mpi2Families are MPI implementations a toolchain may declare that support
// MPI-2. MPICH here is MPICH v3.x.
var mpi2Families = map[string]bool{
	"MPICH":    true,
	"MPICH2":   true,
	"MVAPICH2": true,
	"OpenMPI":  true,
	"IntelMPI": true,
	"impi":     true,
}

// mpi2Libraries are scanned in the catalog when the toolchain declares no
// MPI family.
var mpi2Libraries = []string{"impi", "MVAPICH2", "OpenMPI", "MPICH2", "MPICH"}

// defaultOpenMPFlags fill in an empty Toolchain.OpenMPFlag for threaded
// builds.
var defaultOpenMPFlags = map[facts.Family]string{
	facts.FamilyGNU:   "-fopenmp",
	facts.FamilyIntel: "-openmp",
}

// mpi2Source reports which fact established MPI-2 support.
func mpi2Source(tc facts.Toolchain, cat facts.Catalog) (string, bool) {
	if tc.MPIFamily != "" {
		return "mpi_family=" + tc.MPIFamily, mpi2Families[tc.MPIFamily]
	}
	for _, name := range mpi2Libraries {
		if cat.Has(name) {
			return "library=" + name, true
		}
	}
	return "", false
}

func applyBase(_ context.Context, b *build) error {
	tc, env, ov := b.req.Toolchain, b.req.Env, b.req.Overrides

	src, ok := mpi2Source(tc, b.req.Catalog)
	if !ok {
		fact := src
		if fact == "" {
			fact = "no MPI library in catalog"
		}
		return configErrorf("base", fact, "an MPI-2 capable MPI library is required")
	}
	b.log.Debug("MPI-2 support established", "by", src)

	optFlags, regFlags := "NOOPT", "NOOPT"
	if tc.Optimize {
		optFlags, regFlags = "OPT", "OPT2"
	}
	var fpic, debug string
	if tc.PIC {
		fpic = "-fPIC"
	}
	if tc.Debug {
		debug = "-g"
	}

	o := b.opts
	o.Set("CC", env.MPICC)
	o.Set("CPP", "")
	o.Set(keyFC, env.MPIF90)
	o.Set(keyLD, env.MPIF90)
	o.Set("AR", "ar -r")
	o.Set("CPPFLAGS", "")
	o.Set("FPIC", fpic)
	o.Set("DEBUG", debug)
	o.Set("FCFLAGS", "$(FCFLAGS"+optFlags+")")
	o.Set("FCFLAGS2", "$(FCFLAGS"+regFlags+")")
	o.Append(keyCFlags, env.CPPFlags, env.LDFlags, "$(FPIC) $(DEBUG)", ov.ExtraCFlags)
	o.Append(keyDFlags, mpiFeatureDefines)
	o.Append(keyDFlags, smallMatrixDefines(b.req.Catalog)...)
	o.Append(keyDFlags, ov.ExtraDFlags)
	o.Append(keyLibs, env.Libs)
	o.Set("FCFLAGSNOOPT", "$(DFLAGS) $(CFLAGS) -O0 $(FREE) $(FPIC) $(DEBUG)")
	o.Set(keyFCFlagsOpt, "-O2 $(FREE) $(SAFE) $(FPIC) $(DEBUG)")
	o.Set(keyFCFlagsOpt2, "-O1 $(FREE) $(SAFE) $(FPIC) $(DEBUG)")
	return nil
}

func applyVariant(_ context.Context, b *build) error {
	if b.req.Variant != facts.VariantPsmp {
		return nil
	}
	flag := b.req.Toolchain.OpenMPFlag
	if flag == "" {
		flag = defaultOpenMPFlags[b.req.Toolchain.Family]
	}
	b.openmp = flag
	b.opts.Append(keyFC, flag)
	b.opts.Append(keyLD, flag)
	return nil
}

// smallMatrixDefines returns one -D__HAS_<variant> per detected small-matrix
// archive: lib/libsmm_dnn.a gives -D__HAS_smm_dnn.
func smallMatrixDefines(cat facts.Catalog) []string {
	info, ok := cat.Lookup(facts.LibSmallMatrix)
	if !ok {
		return nil
	}
	defs := make([]string, 0, len(info.Files))
	for _, f := range info.Files {
		base := strings.TrimSuffix(path.Base(f), path.Ext(f))
		defs = append(defs, strings.ReplaceAll(base, "lib", "-D__HAS_"))
	}
	return defs
}

// smallMatrixLibs returns the small-matrix archives to link, or "".
func smallMatrixLibs(cat facts.Catalog) string {
	info, ok := cat.Lookup(facts.LibSmallMatrix)
	if !ok {
		return ""
	}
	return strings.Join(info.ArchivePaths(), " ")
}
