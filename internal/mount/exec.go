package mount

import (
	"os/exec"
	"strings"

	"github.com/pkg/errors"

	"mountctl/internal/log"
	"mountctl/internal/procmounts"
)

// ExecMounter implements Mounter and Lister by shelling out to the system
// mount and umount binaries.
type ExecMounter struct {
	mountBin  string
	umountBin string
}

// NewExecMounter creates an ExecMounter. Empty binary names fall back to
// "mount" and "umount" resolved through PATH.
func NewExecMounter(mountBin, umountBin string) *ExecMounter {
	if mountBin == "" {
		mountBin = "mount"
	}
	if umountBin == "" {
		umountBin = "umount"
	}
	return &ExecMounter{mountBin: mountBin, umountBin: umountBin}
}

// Mount mounts target using its mount table entry. When target is already a
// mount point the filesystem is remounted in place instead, which applies
// changed options without a detach.
func (m *ExecMounter) Mount(target string) error {
	isMount, err := procmounts.IsMountPoint(target)
	if err != nil {
		return &ActionError{Action: "mount", Target: target, Err: errors.Wrap(err, "check mount point")}
	}

	args := []string{target}
	if isMount {
		args = []string{"-o", "remount", target}
	}

	log.Debug("running mount", "bin", m.mountBin, "args", args)
	out, err := exec.Command(m.mountBin, args...).CombinedOutput()
	if err != nil {
		return &ActionError{Action: "mount", Target: target, Output: string(out), Err: err}
	}

	log.Debug("mounted", "target", target, "remount", isMount)
	return nil
}

// Unmount unmounts the filesystem at target.
func (m *ExecMounter) Unmount(target string) error {
	log.Debug("running umount", "bin", m.umountBin, "target", target)

	out, err := exec.Command(m.umountBin, target).CombinedOutput()
	if err != nil {
		return &ActionError{Action: "umount", Target: target, Output: string(out), Err: err}
	}

	log.Debug("unmounted", "target", target)
	return nil
}

// Mounted returns the mount-point to source mapping reported by mount -l.
// An empty mapping is an error: even a minimal system reports the root
// filesystem, so nothing at all means the query itself went wrong.
func (m *ExecMounter) Mounted() (map[string]string, error) {
	out, err := exec.Command(m.mountBin, "-l").CombinedOutput()
	if err != nil {
		return nil, &QueryError{Err: errors.Wrapf(err, "%s -l: %s", m.mountBin, strings.TrimSpace(string(out)))}
	}

	mounted := parseMountList(string(out))
	if len(mounted) == 0 {
		return nil, &QueryError{Err: errors.New("no mounted filesystems reported")}
	}
	return mounted, nil
}

// parseMountList parses mount -l output, lines shaped like:
//
//	/dev/sda1 on / type ext4 (rw,relatime)
func parseMountList(out string) map[string]string {
	mounted := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		mounted[fields[2]] = fields[0]
	}
	return mounted
}
