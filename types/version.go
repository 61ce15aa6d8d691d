package types

// Version is the canonical project version, shared by the CLI banner,
// reports, and run-finished events.
const Version = "0.7.0"
