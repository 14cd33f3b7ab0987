package scene

import (
	"github.com/rotisserie/eris"
	"github.com/wI2L/jsondiff"
)

// DiffSnapshots returns the JSON patch turning document a into b. An empty
// patch means the documents are equal.
func DiffSnapshots(a, b []byte) (jsondiff.Patch, error) {
	patch, err := jsondiff.CompareJSON(a, b)
	if err != nil {
		return nil, eris.Wrapf(ErrMalformedDocument, "diff: %v", err)
	}
	return patch, nil
}
