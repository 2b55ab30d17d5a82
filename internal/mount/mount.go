// Package mount holds the OS-level collaborators for mount convergence:
// running mount/umount and querying what is currently mounted.
package mount

// Mounter runs the OS-level mount and unmount actions for a target path.
// The target's entry must already be present in the mount table, since the
// actions are driven by the target path alone.
type Mounter interface {
	// Mount attaches the filesystem configured for target, remounting in
	// place when target is already a mount point.
	Mount(target string) error
	// Unmount detaches the filesystem mounted at target.
	Unmount(target string) error
}

// Lister reports the currently mounted filesystems.
type Lister interface {
	// Mounted returns a mapping from mount-point path to source device.
	Mounted() (map[string]string, error)
}
