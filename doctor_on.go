//go:build diagnostics

package daab

import "github.com/dezajno/daab/diagnostics"

const diagnosticsEnabled = true

// doctorHook carries the installed Doctor in a diagnostics build.
type doctorHook struct {
	doctor diagnostics.Doctor
}

func newDoctorHookDefault() doctorHook {
	return doctorHook{doctor: diagnostics.NoopDoctor{}}
}

func (h doctorHook) resolve(builder, used builderInfo) {
	h.doctor.Resolve(builder.handle(), used.handle())
}

func (h doctorHook) build(builder builderInfo, artifact artifactInfo) {
	h.doctor.Build(builder.handle(), artifact.handle())
}

func (h doctorHook) invalidate(builder builderInfo) {
	h.doctor.Invalidate(builder.handle())
}

func (h doctorHook) clear() {
	h.doctor.Clear()
}

// NewWithDoctor creates a new empty cache with the given Doctor installed
// for lifecycle inspection. Only available when built with the
// "diagnostics" tag.
func NewWithDoctor(doctor diagnostics.Doctor) *Cache {
	c := newCache()
	c.doctor = doctorHook{doctor: doctor}
	return c
}

// Doctor returns the cache's installed Doctor.
func (c *Cache) Doctor() diagnostics.Doctor {
	return c.doctor.doctor
}
