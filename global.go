// Package sweepview reads sweep-measurement datasets from disk and provides
// a query layer over one or more of them: dimension and unit lookup, virtual
// dimensions derived from instrument snapshots, row masking, sweep
// segmentation, and gridding onto labeled coordinate axes.
package sweepview

import (
	"log"
	"os"
)

// BuildInfo can contain compile-time information about the build
type BuildInfo struct {
	Version string
	Githash string
	Date    string
}

// Build is a global holding compile-time information about the build
var Build = BuildInfo{
	Version: "0.3.0",
	Githash: "no git hash computed",
	Date:    "no build date computed",
}

// ProblemLogger will log warning messages, such as datasets whose diff
// archive disagrees with the tabular footer. The main program overrides this
// to point at a rotating log file.
var ProblemLogger *log.Logger

func init() {
	ProblemLogger = log.New(os.Stderr, "", log.LstdFlags)
}
