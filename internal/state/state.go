// Package state converges one mount point to a requested target state,
// sequencing mount table edits with OS-level mount, unmount and directory
// actions.
package state

import (
	"fmt"
	"os"

	"mountctl/internal/fstab"
	"mountctl/internal/log"
	"mountctl/internal/mount"
)

// State selects the convergence target for one invocation.
type State string

const (
	// Present ensures the table holds the entry. No OS action is taken.
	Present State = "present"
	// Absent removes the entry from the table. No OS action is taken.
	Absent State = "absent"
	// Mounted ensures the table entry, the mount-point directory and the
	// active mount.
	Mounted State = "mounted"
	// Unmounted removes the table entry, unmounts the filesystem if active
	// and removes the mount-point directory.
	Unmounted State = "unmounted"
)

// Request describes one convergence: the mount point, the entry fields to
// reconcile into the table, and the target state. Opts, Dump and Passno may
// be left empty to take the per-state defaults.
type Request struct {
	Name   string
	Src    string
	FSType string
	Opts   string
	Dump   string
	Passno string
	State  State
	Fstab  string
}

// Result reports what a convergence did. Entry carries the resolved field
// values, defaults applied.
type Result struct {
	Changed bool
	Entry   fstab.Entry
}

// Machine drives one mount point to a requested state. The OS-level actions
// go through the Mounter and Lister collaborators so they can be faked in
// tests; table edits go straight to the fstab package.
type Machine struct {
	mounter mount.Mounter
	lister  mount.Lister
}

// NewMachine creates a Machine using the given collaborators.
func NewMachine(mounter mount.Mounter, lister mount.Lister) *Machine {
	return &Machine{mounter: mounter, lister: lister}
}

// entryDefaults are the per-state defaults for the optional entry fields.
// Returned by value so no call can leak a mutation into the next one.
type entryDefaults struct {
	Opts   string
	Dump   string
	Passno string
}

func (s State) defaults() entryDefaults {
	// The removal states historically default options to "default" rather
	// than "defaults". Removal never compares field values, so the odd
	// spelling only shows up in the reported result.
	if s == Absent || s == Unmounted {
		return entryDefaults{Opts: "default", Dump: "0", Passno: "0"}
	}
	return entryDefaults{Opts: "defaults", Dump: "0", Passno: "0"}
}

// resolve builds the table entry for the request, filling unset optional
// fields from the state's defaults.
func (r Request) resolve() fstab.Entry {
	d := r.State.defaults()
	e := fstab.Entry{
		Source:   r.Src,
		Target:   r.Name,
		FSType:   r.FSType,
		Options:  r.Opts,
		DumpFreq: r.Dump,
		PassNo:   r.Passno,
	}
	if e.Options == "" {
		e.Options = d.Opts
	}
	if e.DumpFreq == "" {
		e.DumpFreq = d.Dump
	}
	if e.PassNo == "" {
		e.PassNo = d.Passno
	}
	return e
}

// Apply converges the mount point described by req to req.State. The table
// is loaded fresh, the current OS mount list is queried once, and every
// fatal condition aborts the whole invocation. Changed is true when the
// table content, the active mount state or the mount-point directory was
// altered.
func (m *Machine) Apply(req Request) (Result, error) {
	entry := req.resolve()
	res := Result{Entry: entry}

	mounted, err := m.lister.Mounted()
	if err != nil {
		return res, err
	}

	path := req.Fstab
	if path == "" {
		path = fstab.DefaultPath
	}

	table, err := fstab.Load(path)
	if err != nil {
		return res, err
	}

	switch req.State {
	case Absent:
		res.Changed, err = m.removeEntry(table, path, entry.Target)
		return res, err
	case Present:
		res.Changed, err = m.upsertEntry(table, path, entry)
		return res, err
	case Unmounted:
		return m.convergeUnmounted(entry, table, path, mounted)
	case Mounted:
		return m.convergeMounted(entry, table, path, mounted)
	default:
		return res, fmt.Errorf("unknown state %q", req.State)
	}
}

// upsertEntry reconciles the entry into the table and persists the table
// only when its content actually changed.
func (m *Machine) upsertEntry(table *fstab.Table, path string, entry fstab.Entry) (bool, error) {
	if !table.Upsert(entry) {
		return false, nil
	}
	if err := table.Save(path); err != nil {
		return false, err
	}
	log.Debug("mount table updated", "path", path, "target", entry.Target)
	return true, nil
}

// removeEntry drops the target's entries from the table and persists only
// when something was dropped.
func (m *Machine) removeEntry(table *fstab.Table, path, target string) (bool, error) {
	if !table.Remove(target) {
		return false, nil
	}
	if err := table.Save(path); err != nil {
		return false, err
	}
	log.Debug("mount table entry removed", "path", path, "target", target)
	return true, nil
}

// convergeUnmounted removes the table entry, unmounts the filesystem when
// the OS reports it mounted, and removes the mount-point directory. The
// table edit is not rolled back on unmount failure: absence is already the
// correct table content at that point.
func (m *Machine) convergeUnmounted(entry fstab.Entry, table *fstab.Table, path string, mounted map[string]string) (Result, error) {
	res := Result{Entry: entry}

	changed, err := m.removeEntry(table, path, entry.Target)
	if err != nil {
		return res, err
	}
	res.Changed = changed

	if _, ok := mounted[entry.Target]; ok {
		if err := m.mounter.Unmount(entry.Target); err != nil {
			return res, err
		}
		log.Info("filesystem unmounted", "target", entry.Target)
		res.Changed = true
	}

	// The mount point may survive the unmount, or exist without having been
	// mounted at all. Remove it non-recursively so data left underneath is
	// never destroyed.
	if _, err := os.Stat(entry.Target); err == nil {
		if err := os.Remove(entry.Target); err != nil {
			return res, &mount.ActionError{Action: "remove mount point", Target: entry.Target, Err: err}
		}
		log.Info("mount point removed", "target", entry.Target)
		res.Changed = true
	}

	return res, nil
}

// convergeMounted reconciles the table entry, creates the mount-point
// directory when missing, and mounts the filesystem when it is not active
// or anything changed. A failed directory creation or mount compensates the
// table edit before surfacing the failure.
func (m *Machine) convergeMounted(entry fstab.Entry, table *fstab.Table, path string, mounted map[string]string) (Result, error) {
	res := Result{Entry: entry}

	changed, err := m.upsertEntry(table, path, entry)
	if err != nil {
		return res, err
	}
	res.Changed = changed

	if _, err := os.Stat(entry.Target); err != nil {
		if err := os.MkdirAll(entry.Target, 0755); err != nil {
			m.rollbackEntry(path, entry.Target)
			return res, &mount.ActionError{Action: "create mount point", Target: entry.Target, Err: err}
		}
		log.Info("mount point created", "target", entry.Target)
		res.Changed = true
	}

	if _, ok := mounted[entry.Target]; !ok || res.Changed {
		if err := m.mounter.Mount(entry.Target); err != nil {
			m.rollbackEntry(path, entry.Target)
			return res, err
		}
		log.Info("filesystem mounted", "target", entry.Target)
		res.Changed = true
	}

	return res, nil
}

// rollbackEntry compensates a just-persisted table edit after a failed OS
// action by removing the target's entry again. Best effort: the action
// error is what the caller surfaces, so a rollback failure is only logged.
func (m *Machine) rollbackEntry(path, target string) {
	table, err := fstab.Load(path)
	if err != nil {
		log.Warn("rollback: reload mount table failed", "path", path, "error", err)
		return
	}
	if !table.Remove(target) {
		return
	}
	if err := table.Save(path); err != nil {
		log.Warn("rollback: save mount table failed", "path", path, "error", err)
		return
	}
	log.Debug("rolled back mount table entry", "path", path, "target", target)
}
