package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptionSetKeepsInsertionOrder(t *testing.T) {
	o := NewOptionSet()
	o.Set("FC", "mpif90")
	o.Set("CC", "mpicc")
	o.Append("LIBS", "-lm")
	o.Set("FC", "mpifort")

	assert.Equal(t, []string{"FC", "CC", "LIBS"}, o.Keys())
	assert.Equal(t, "mpifort", o.Value("FC"))
	assert.Equal(t, 3, o.Len())
}

func TestOptionSetAppendPrepend(t *testing.T) {
	o := NewOptionSet()
	o.Append("LIBS", "", "  ")
	v, ok := o.Get("LIBS")
	assert.True(t, ok, "key is created even when every fragment is empty")
	assert.Empty(t, v)

	o.Append("LIBS", "-lb", "", " -lc ")
	o.Prepend("LIBS", "-la")
	assert.Equal(t, "-la -lb -lc", o.Value("LIBS"))

	frags := []string{"-lx", "-ly"}
	o.Prepend("LIBS", frags...)
	assert.Equal(t, []string{"-lx", "-ly"}, frags)
	assert.Equal(t, "-lx -ly -la -lb -lc", o.Value("LIBS"))
}

func TestOptionSetKeysAreCaseSensitive(t *testing.T) {
	o := NewOptionSet()
	o.Set("libs", "a")
	o.Set("LIBS", "b")

	assert.Equal(t, "a", o.Value("libs"))
	assert.Equal(t, "b", o.Value("LIBS"))
	assert.Equal(t, 2, o.Len())
}

func TestSerializeEmptyValues(t *testing.T) {
	o := NewOptionSet()
	o.Set("CPP", "")
	o.Set("AR", "ar -r")

	got := Serialize(o, []CompileRule{{Source: "et_coupling", Flags: lowOpt}})
	want := generatedHeader + "\n\nCPP =\nAR = ar -r\n\net_coupling.o: et_coupling.F\n\t$(FC) -c $(FCFLAGS2) $<\n"
	assert.Equal(t, want, got)
}
