package version

// Version is set at build time with -ldflags "-X github.com/bnema/agentfeed/internal/version.Version=...".
var Version = "dev"
