package utils

// These are set via ldflags at build time.
var (
	Tag        string
	GitHash    string
	BuildStamp string
)
