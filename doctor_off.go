//go:build !diagnostics

package daab

// diagnosticsEnabled is a compile-time constant the rest of the cache core
// guards every diagnostics call site with (`if diagnosticsEnabled { ... }`),
// so the Go compiler dead-code-eliminates the guarded block — including the
// builderInfo/artifactInfo construction that would otherwise format debug
// strings — entirely in this build. This is the Go equivalent of the
// original crate's `#[cfg(feature = "diagnostics")]` gating.
const diagnosticsEnabled = false

// doctorHook is the zero-size default in a non-diagnostics build: no Doctor
// field, no method call ever does anything but return.
type doctorHook struct{}

func newDoctorHookDefault() doctorHook { return doctorHook{} }

func (doctorHook) resolve(builderInfo, builderInfo) {}
func (doctorHook) build(builderInfo, artifactInfo)  {}
func (doctorHook) invalidate(builderInfo)           {}
func (doctorHook) clear()                           {}
