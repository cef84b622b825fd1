// Package buildinfo exposes values injected at link time, e.g.
//
//	go build -ldflags "-X github.com/dmitrijs2005/studiosync/internal/buildinfo.Version=1.2.0 \
//	  -X github.com/dmitrijs2005/studiosync/internal/buildinfo.debugFlag=true"
package buildinfo

import (
	"fmt"
	"io"
)

var (
	Version = "0.1.0"
	Commit  = "N/A"
	Date    = "N/A"

	debugFlag = "false"
)

// InternalName is the product name sent in the User-Agent header.
const InternalName = "StudioSync"

// Debug reports whether this is a debug build. Debug builds log sensitive
// request bodies (login) that release builds hide.
func Debug() bool {
	return debugFlag == "true"
}

// UserAgent returns the identifying header value for outbound requests.
func UserAgent() string {
	return InternalName + " v" + Version
}

// PrintBuildData writes the build version, date and commit to w.
func PrintBuildData(w io.Writer) {
	fmt.Fprintf(w, "Build version: %s\n", Version)
	fmt.Fprintf(w, "Build date: %s\n", Date)
	fmt.Fprintf(w, "Build commit: %s\n", Commit)
}
