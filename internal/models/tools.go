package models

// ToolStatus describes one required external executable.
type ToolStatus struct {
	Name      string
	Installed bool
	Path      string // empty if not installed
	Version   string // empty if the version could not be determined
}

// OSInfo describes the host the tool runs on.
type OSInfo struct {
	Family  string // "Linux", "Darwin", "Windows", ...
	Release string
	Arch    string
}

// InstallMethod is one way of installing the PostgreSQL client tools.
type InstallMethod struct {
	Name    string
	Command string
}
