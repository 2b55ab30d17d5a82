// Package procmounts reads the kernel's view of mounted filesystems.
package procmounts

// Entry represents one entry in /proc/mounts.
type Entry struct {
	Device     string
	MountPoint string
	FSType     string
	Options    string
}
