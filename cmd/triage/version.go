package main

import (
	"fmt"
	"runtime"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=v1.0.0" ./cmd/triage/
var version = "dev"

func versionString() string {
	return fmt.Sprintf("triage %s (%s %s/%s)", version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func printVersion() {
	fmt.Println(versionString())
}
