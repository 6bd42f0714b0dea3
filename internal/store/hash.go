package store

import (
	"crypto/sha256"
	"fmt"
)

// ComputeFragmentKey hashes everything a build depends on: the pipeline
// version, the documentation path, the unit import path, the companion path
// (its extension picks the grammar) and the companion text. A nil companion
// hashes differently from an empty one.
func ComputeFragmentKey(version, documentationPath, unitImportPath, companionPath string, companion []byte) string {
	h := sha256.New()
	fmt.Fprintf(h, "version:%s\n", version)
	fmt.Fprintf(h, "documentation:%s\n", documentationPath)
	fmt.Fprintf(h, "unit:%s\n", unitImportPath)
	fmt.Fprintf(h, "companion_path:%s\n", companionPath)
	if companion == nil {
		fmt.Fprint(h, "companion:none\n")
	} else {
		fmt.Fprintf(h, "companion:%d\n", len(companion))
		h.Write(companion)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
