package daab

import (
	"fmt"

	"github.com/dezajno/daab/diagnostics"
)

func typeNameOf[A any](v *A) string    { return fmt.Sprintf("%T", v) }
func debugStringOf[A any](v *A) string { return fmt.Sprintf("%+v", v) }

// builderInfo is a lazily-formatted, type-erased view of a builder used to
// feed the diagnostics.Doctor surface. The debug/type-name strings are only
// formatted when handle() is called, which only the diagnostics build's
// doctorHook does (for every event, whichever Doctor is installed), so a
// non-diagnostics build never pays for fmt.Sprintf calls it will never use —
// every call site guards construction of these values with
// `if diagnosticsEnabled`, which the compiler constant-folds away entirely
// in the default build.
type builderInfo struct {
	id       BuilderID
	typeName func() string
	debug    func() string
}

func (b builderInfo) handle() diagnostics.BuilderHandle {
	return diagnostics.BuilderHandle{
		ID:       uintptr(b.id),
		TypeName: b.typeName(),
		Debug:    b.debug(),
	}
}

type artifactInfo struct {
	id       BuilderID
	typeName func() string
	debug    func() string
}

func (a artifactInfo) handle() diagnostics.ArtifactHandle {
	return diagnostics.ArtifactHandle{
		ID:       uintptr(a.id),
		TypeName: a.typeName(),
		Debug:    a.debug(),
	}
}

func infoOf[A any, S any](h Handle[A, S]) builderInfo {
	return builderInfo{
		id:       h.id,
		typeName: h.typeName,
		debug:    h.debugString,
	}
}

func artifactInfoOf[A any](id BuilderID, art *A) artifactInfo {
	return artifactInfo{
		id:       id,
		typeName: func() string { return typeNameOf(art) },
		debug:    func() string { return debugStringOf(art) },
	}
}
