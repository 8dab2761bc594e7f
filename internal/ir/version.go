package ir

// Version is the lazytbl release recorded in CLI output and logs.
const Version = "0.3.0"
