package testing

import (
	"os"
	"path"
	"runtime"
)

// Importing this package for its side effect moves the test process to the
// module root, so relative paths such as logs/ and .env resolve the same way
// they do for cmd/server:
//
//	import (
//	  _ "liyu1981.xyz/iwown-health-service/pkg/testing"
//	)
func init() {
	_, filename, _, _ := runtime.Caller(0)
	root := path.Join(path.Dir(filename), "..", "..")
	if err := os.Chdir(root); err != nil {
		panic(err)
	}

	// keep test runs on the console logger unless a test asks otherwise
	if _, found := os.LookupEnv("GO_ENV"); !found {
		_ = os.Setenv("GO_ENV", "test")
	}
}
