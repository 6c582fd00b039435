//go:build !statsview

package statsview

import "io"

const DefaultAddress = "localhost:12600"

// Launch does nothing, the binary was built without the statsview tag
func Launch(string, io.Writer) {}

func Available() bool {
	return false
}
