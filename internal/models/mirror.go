package models

import "time"

// BackupArtifact is the transient dump file produced by pg_dump.
type BackupArtifact struct {
	Path      string
	SizeBytes int64
	Duration  time.Duration
}

// RestoreStatus classifies a pg_restore invocation.
type RestoreStatus int

// Restore outcomes.
const (
	RestoreSuccess RestoreStatus = iota
	RestoreSuccessWithWarnings
	RestoreFailure
)

func (s RestoreStatus) String() string {
	switch s {
	case RestoreSuccess:
		return "success"
	case RestoreSuccessWithWarnings:
		return "success_with_warnings"
	case RestoreFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// RestoreOutcome holds the classified result of a restore.
type RestoreOutcome struct {
	Status      RestoreStatus
	Diagnostics string
	Duration    time.Duration
}

// Succeeded reports whether the restore counts as a successful mirror.
func (o *RestoreOutcome) Succeeded() bool {
	return o != nil && o.Status != RestoreFailure
}

// TargetAction is the decision taken while preparing the target database.
type TargetAction string

// Target preparation actions.
const (
	TargetActionNone     TargetAction = "none"
	TargetActionCreate   TargetAction = "create"
	TargetActionRecreate TargetAction = "recreate"
)

// MirrorResult summarizes one mirroring run.
type MirrorResult struct {
	RunID        string
	Database     string
	Stage        string // "done" or "failed" once Run returns
	TargetAction TargetAction
	Artifact     *BackupArtifact
	Outcome      *RestoreOutcome
	Duration     time.Duration
}
