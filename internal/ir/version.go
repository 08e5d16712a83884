package ir

// ToolVersion is the pipfuzz version reported by --version.
const ToolVersion = "0.1.0"
