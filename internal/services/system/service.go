// Package system verifies that the PostgreSQL client tools are installed.
package system

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/fgeck/pg-mirror/internal/models"
	"github.com/fgeck/pg-mirror/internal/services/pgcli"
	"github.com/rs/zerolog"
)

// DefaultVersionTimeout bounds each "--version" probe.
const DefaultVersionTimeout = 5 * time.Second

// MissingToolsError lists every required tool that was not found.
type MissingToolsError struct {
	Names []string
}

func (e *MissingToolsError) Error() string {
	return fmt.Sprintf("missing required PostgreSQL client tools: %s", strings.Join(e.Names, ", "))
}

// Service defines the interface for system checks.
type Service interface {
	ProbeTools(ctx context.Context) map[string]models.ToolStatus
	Verify(ctx context.Context, verbose bool) error
	PrintInstallationHelp()
}

// LookPathFunc resolves an executable name to a path.
type LookPathFunc func(file string) (string, error)

// OSInfoFunc describes the current host.
type OSInfoFunc func() models.OSInfo

// Impl implements the system Service interface.
type Impl struct {
	executor       pgcli.Executor
	lookPath       LookPathFunc
	osInfo         OSInfoFunc
	out            io.Writer
	logger         zerolog.Logger
	versionTimeout time.Duration
}

// New creates a new system service that renders reports to out.
func New(logger zerolog.Logger, out io.Writer) *Impl {
	return &Impl{
		executor:       &pgcli.DefaultExecutor{},
		lookPath:       exec.LookPath,
		osInfo:         HostOSInfo,
		out:            out,
		logger:         logger,
		versionTimeout: DefaultVersionTimeout,
	}
}

// NewWithDeps creates a new system service with custom dependencies (for testing).
func NewWithDeps(
	logger zerolog.Logger,
	out io.Writer,
	executor pgcli.Executor,
	lookPath LookPathFunc,
	osInfo OSInfoFunc,
	versionTimeout time.Duration,
) *Impl {
	return &Impl{
		executor:       executor,
		lookPath:       lookPath,
		osInfo:         osInfo,
		out:            out,
		logger:         logger,
		versionTimeout: versionTimeout,
	}
}

// HostOSInfo returns the family, kernel release and architecture of this host.
func HostOSInfo() models.OSInfo {
	info := models.OSInfo{
		Family: osFamily(runtime.GOOS),
		Arch:   runtime.GOARCH,
	}
	if runtime.GOOS == "linux" {
		if release, err := os.ReadFile("/proc/sys/kernel/osrelease"); err == nil {
			info.Release = strings.TrimSpace(string(release))
		}
	}
	return info
}

func osFamily(goos string) string {
	switch goos {
	case "linux":
		return "Linux"
	case "darwin":
		return "Darwin"
	case "windows":
		return "Windows"
	case "":
		return "Unknown"
	default:
		return strings.ToUpper(goos[:1]) + goos[1:]
	}
}

// ProbeTools resolves every required tool and queries its version.
// Probing never fails; missing data is left empty.
func (s *Impl) ProbeTools(ctx context.Context) map[string]models.ToolStatus {
	statuses := make(map[string]models.ToolStatus, len(pgcli.RequiredTools))

	for _, tool := range pgcli.RequiredTools {
		status := models.ToolStatus{Name: tool}

		path, err := s.lookPath(tool)
		if err == nil {
			status.Installed = true
			status.Path = path
			status.Version = s.version(ctx, tool)
		}

		s.logger.Debug().
			Str("tool", tool).
			Bool("installed", status.Installed).
			Str("path", status.Path).
			Str("version", status.Version).
			Msg("tool probed")

		statuses[tool] = status
	}

	return statuses
}

// version returns the first line of "<tool> --version", or "" on any failure.
func (s *Impl) version(ctx context.Context, tool string) string {
	ctx, cancel := context.WithTimeout(ctx, s.versionTimeout)
	defer cancel()

	result, err := s.executor.Execute(ctx, nil, tool, "--version")
	if err != nil || result == nil {
		return ""
	}

	first, _, _ := strings.Cut(strings.TrimSpace(result.Stdout), "\n")
	return strings.TrimSpace(first)
}

// Verify checks all required tools before failing, so the error names every
// missing tool at once.
func (s *Impl) Verify(ctx context.Context, verbose bool) error {
	statuses := s.ProbeTools(ctx)

	if verbose {
		info := s.osInfo()
		s.section("System Information:")
		fmt.Fprintf(s.out, "OS: %s %s\n", info.Family, info.Release)
		fmt.Fprintf(s.out, "Machine: %s\n", info.Arch)
		fmt.Fprintln(s.out)
		s.section("PostgreSQL Client Tools:")
	}

	ok := color.New(color.FgGreen).SprintFunc()
	bad := color.New(color.FgRed).SprintFunc()

	var missing []string
	for _, tool := range pgcli.RequiredTools {
		status := statuses[tool]
		if verbose {
			if status.Installed {
				version := status.Version
				if version == "" {
					version = "unknown version"
				}
				fmt.Fprintf(s.out, "%s %-12s : %s\n", ok("✓"), tool, version)
				fmt.Fprintf(s.out, "  Path: %s\n", status.Path)
			} else {
				fmt.Fprintf(s.out, "%s %-12s : %s\n", bad("✗"), tool, bad("NOT FOUND"))
			}
		}
		if !status.Installed {
			missing = append(missing, tool)
		}
	}

	if len(missing) > 0 {
		if verbose {
			fmt.Fprintln(s.out)
			s.section("Installation Instructions:")
			s.renderMethods(InstallationInstructions(s.osInfo().Family))
			fmt.Fprintln(s.out)
		}
		return &MissingToolsError{Names: missing}
	}

	if verbose {
		fmt.Fprintln(s.out)
		s.section(ok("✓ All system requirements met!"))
		fmt.Fprintln(s.out)
	}

	return nil
}

// PrintInstallationHelp renders the installation guide for this host.
func (s *Impl) PrintInstallationHelp() {
	info := s.osInfo()

	s.section("PostgreSQL Client Tools Installation Guide")
	fmt.Fprintf(s.out, "Detected OS: %s %s\n\n", info.Family, info.Release)
	fmt.Fprintf(s.out, "Required tools: %s\n\n", strings.Join(pgcli.RequiredTools, ", "))
	fmt.Fprintln(s.out, "Installation Options:")
	fmt.Fprintln(s.out, strings.Repeat("-", 60))
	s.renderMethods(InstallationInstructions(info.Family))
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, strings.Repeat("=", 60))
	fmt.Fprintln(s.out, "After installation, verify with:")
	for _, tool := range pgcli.RequiredTools {
		fmt.Fprintf(s.out, "  %s --version\n", tool)
	}
	fmt.Fprintln(s.out, strings.Repeat("=", 60))
}

func (s *Impl) section(title string) {
	fmt.Fprintln(s.out, strings.Repeat("=", 60))
	fmt.Fprintln(s.out, title)
	fmt.Fprintln(s.out, strings.Repeat("=", 60))
}

func (s *Impl) renderMethods(methods []models.InstallMethod) {
	for _, m := range methods {
		fmt.Fprintf(s.out, "\n%s:\n  %s\n", strings.ToUpper(m.Name), m.Command)
	}
}
