package system

import "github.com/fgeck/pg-mirror/internal/models"

var installInstructions = map[string][]models.InstallMethod{
	"Linux": {
		{Name: "debian", Command: "sudo apt-get update && sudo apt-get install postgresql-client"},
		{Name: "ubuntu", Command: "sudo apt-get update && sudo apt-get install postgresql-client"},
		{Name: "fedora", Command: "sudo dnf install postgresql"},
		{Name: "rhel", Command: "sudo yum install postgresql"},
		{Name: "centos", Command: "sudo yum install postgresql"},
		{Name: "arch", Command: "sudo pacman -S postgresql"},
		{Name: "generic", Command: "Install postgresql-client package using your distribution's package manager"},
	},
	"Darwin": {
		{Name: "homebrew", Command: "brew install postgresql"},
		{Name: "macports", Command: "sudo port install postgresql-client"},
		{Name: "generic", Command: "brew install postgresql (requires Homebrew)"},
	},
	"Windows": {
		{Name: "installer", Command: "Download from: https://www.postgresql.org/download/windows/"},
		{Name: "chocolatey", Command: "choco install postgresql"},
		{Name: "scoop", Command: "scoop install postgresql"},
		{Name: "generic", Command: "Download installer from https://www.postgresql.org/download/windows/"},
	},
}

var genericInstructions = []models.InstallMethod{
	{Name: "generic", Command: "Visit https://www.postgresql.org/download/"},
}

// InstallationInstructions returns the install methods for an OS family,
// falling back to a generic entry for unknown families.
func InstallationInstructions(family string) []models.InstallMethod {
	if methods, ok := installInstructions[family]; ok {
		return methods
	}
	return genericInstructions
}
