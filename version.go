package main

// Version is the compiled-in version of this binary, overridden at build
// time via -ldflags "-X main.Version=...".
var Version = "0.0.0-dev"
