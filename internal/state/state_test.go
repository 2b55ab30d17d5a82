package state

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mountctl/internal/log"
	"mountctl/internal/mount"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests
	log.Setup(false)
	os.Exit(m.Run())
}

// fakeMounter implements mount.Mounter for testing
type fakeMounter struct {
	mountErr     error
	unmountErr   error
	mountCalls   []string
	unmountCalls []string
}

func (f *fakeMounter) Mount(target string) error {
	f.mountCalls = append(f.mountCalls, target)
	return f.mountErr
}

func (f *fakeMounter) Unmount(target string) error {
	f.unmountCalls = append(f.unmountCalls, target)
	return f.unmountErr
}

// fakeLister implements mount.Lister for testing
type fakeLister struct {
	mounts map[string]string
	err    error
}

func (f *fakeLister) Mounted() (map[string]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.mounts == nil {
		return map[string]string{"/": "/dev/sda1"}, nil
	}
	return f.mounts, nil
}

type fixture struct {
	machine *Machine
	mounter *fakeMounter
	lister  *fakeLister
	fstab   string
	dir     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	mounter := &fakeMounter{}
	lister := &fakeLister{}
	return &fixture{
		machine: NewMachine(mounter, lister),
		mounter: mounter,
		lister:  lister,
		fstab:   filepath.Join(dir, "fstab"),
		dir:     dir,
	}
}

func (f *fixture) tableContent(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(f.fstab)
	require.NoError(t, err)
	return string(data)
}

func (f *fixture) writeTable(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(f.fstab, []byte(content), 0644))
}

func dvdRequest(f *fixture, s State) Request {
	return Request{
		Name:   "/mnt/dvd",
		Src:    "/dev/sr0",
		FSType: "iso9660",
		Opts:   "ro",
		State:  s,
		Fstab:  f.fstab,
	}
}

func TestPresentAddsEntryToEmptyTable(t *testing.T) {
	f := newFixture(t)

	res, err := f.machine.Apply(dvdRequest(f, Present))
	require.NoError(t, err)

	assert.True(t, res.Changed)
	assert.Equal(t, "/dev/sr0 /mnt/dvd iso9660 ro 0 0\n", f.tableContent(t))
	assert.Empty(t, f.mounter.mountCalls, "present must not run OS actions")
	assert.Empty(t, f.mounter.unmountCalls)
}

func TestPresentIsIdempotent(t *testing.T) {
	f := newFixture(t)
	req := dvdRequest(f, Present)

	res, err := f.machine.Apply(req)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	first := f.tableContent(t)

	res, err = f.machine.Apply(req)
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, first, f.tableContent(t))
}

func TestPresentUpdatesDriftedOptions(t *testing.T) {
	f := newFixture(t)
	f.writeTable(t, "/dev/sr0 /mnt/dvd iso9660 ro 0 0\n")

	req := dvdRequest(f, Present)
	req.Opts = "rw"

	res, err := f.machine.Apply(req)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, "/dev/sr0 /mnt/dvd iso9660 rw 0 0\n", f.tableContent(t))

	res, err = f.machine.Apply(req)
	require.NoError(t, err)
	assert.False(t, res.Changed)
}

func TestPresentAppliesDefaults(t *testing.T) {
	f := newFixture(t)
	req := dvdRequest(f, Present)
	req.Opts = ""

	res, err := f.machine.Apply(req)
	require.NoError(t, err)

	assert.Equal(t, "defaults", res.Entry.Options)
	assert.Equal(t, "0", res.Entry.DumpFreq)
	assert.Equal(t, "0", res.Entry.PassNo)
	assert.Equal(t, "/dev/sr0 /mnt/dvd iso9660 defaults 0 0\n", f.tableContent(t))
}

func TestPresentPreservesOpaqueLines(t *testing.T) {
	f := newFixture(t)
	content := "only three fields here\n# keep me\n\n"
	f.writeTable(t, content)

	_, err := f.machine.Apply(dvdRequest(f, Present))
	require.NoError(t, err)

	assert.Equal(t, content+"/dev/sr0 /mnt/dvd iso9660 ro 0 0\n", f.tableContent(t))
}

func TestAbsentRemovesEntryRegardlessOfFields(t *testing.T) {
	f := newFixture(t)
	f.writeTable(t, "/dev/sda1 /mnt/x ext4 ro 0 0\n")

	res, err := f.machine.Apply(Request{
		Name: "/mnt/x", Src: "/dev/sdb9", FSType: "xfs", Opts: "rw",
		State: Absent, Fstab: f.fstab,
	})
	require.NoError(t, err)

	assert.True(t, res.Changed)
	assert.Empty(t, f.tableContent(t))
	assert.Empty(t, f.mounter.unmountCalls, "absent must not unmount")
}

func TestAbsentMissingEntryIsNoop(t *testing.T) {
	f := newFixture(t)
	f.writeTable(t, "/dev/sda1 /data ext4 defaults 0 2\n")

	res, err := f.machine.Apply(Request{
		Name: "/mnt/x", Src: "/dev/sda1", FSType: "ext4",
		State: Absent, Fstab: f.fstab,
	})
	require.NoError(t, err)
	assert.False(t, res.Changed)
}

func TestAbsentReportsAsymmetricDefaultOptions(t *testing.T) {
	f := newFixture(t)

	res, err := f.machine.Apply(Request{
		Name: "/mnt/x", Src: "/dev/sda1", FSType: "ext4",
		State: Absent, Fstab: f.fstab,
	})
	require.NoError(t, err)

	// Removal states default opts to "default", not "defaults"
	assert.Equal(t, "default", res.Entry.Options)
}

func TestMountedCreatesDirAndMounts(t *testing.T) {
	f := newFixture(t)
	target := filepath.Join(f.dir, "vol")

	req := Request{
		Name: target, Src: "/dev/sdb1", FSType: "xfs",
		State: Mounted, Fstab: f.fstab,
	}

	res, err := f.machine.Apply(req)
	require.NoError(t, err)

	assert.True(t, res.Changed)
	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, []string{target}, f.mounter.mountCalls)
	assert.Contains(t, f.tableContent(t), fmt.Sprintf("/dev/sdb1 %s xfs defaults 0 0\n", target))
}

func TestMountedSkipsActionWhenConverged(t *testing.T) {
	f := newFixture(t)
	target := filepath.Join(f.dir, "vol")
	require.NoError(t, os.Mkdir(target, 0755))
	f.writeTable(t, fmt.Sprintf("/dev/sdb1 %s xfs defaults 0 0\n", target))
	f.lister.mounts = map[string]string{"/": "/dev/sda1", target: "/dev/sdb1"}

	res, err := f.machine.Apply(Request{
		Name: target, Src: "/dev/sdb1", FSType: "xfs",
		State: Mounted, Fstab: f.fstab,
	})
	require.NoError(t, err)

	assert.False(t, res.Changed)
	assert.Empty(t, f.mounter.mountCalls)
}

func TestMountedRemountsWhenEntryDrifts(t *testing.T) {
	f := newFixture(t)
	target := filepath.Join(f.dir, "vol")
	require.NoError(t, os.Mkdir(target, 0755))
	f.writeTable(t, fmt.Sprintf("/dev/sdb1 %s xfs defaults 0 0\n", target))
	f.lister.mounts = map[string]string{"/": "/dev/sda1", target: "/dev/sdb1"}

	// Already mounted, but the requested options differ: the table is
	// rewritten and the mount action runs to apply them.
	res, err := f.machine.Apply(Request{
		Name: target, Src: "/dev/sdb1", FSType: "xfs", Opts: "noatime",
		State: Mounted, Fstab: f.fstab,
	})
	require.NoError(t, err)

	assert.True(t, res.Changed)
	assert.Equal(t, []string{target}, f.mounter.mountCalls)
}

func TestMountedRollsBackTableOnMountFailure(t *testing.T) {
	f := newFixture(t)
	target := filepath.Join(f.dir, "vol")
	f.mounter.mountErr = &mount.ActionError{Action: "mount", Target: target, Err: fmt.Errorf("exit status 32")}

	_, err := f.machine.Apply(Request{
		Name: target, Src: "/dev/sdb1", FSType: "xfs",
		State: Mounted, Fstab: f.fstab,
	})
	require.Error(t, err)

	var aerr *mount.ActionError
	assert.ErrorAs(t, err, &aerr)
	// The failed mount compensates the table edit
	assert.Empty(t, f.tableContent(t))
}

func TestMountedRollsBackTableOnMkdirFailure(t *testing.T) {
	f := newFixture(t)
	// A file where the mount-point directory should go makes MkdirAll fail
	blocker := filepath.Join(f.dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	target := filepath.Join(blocker, "vol")

	_, err := f.machine.Apply(Request{
		Name: target, Src: "/dev/sdb1", FSType: "xfs",
		State: Mounted, Fstab: f.fstab,
	})
	require.Error(t, err)

	var aerr *mount.ActionError
	assert.ErrorAs(t, err, &aerr)
	assert.Empty(t, f.tableContent(t))
	assert.Empty(t, f.mounter.mountCalls, "mount must not run after mkdir failure")
}

func TestUnmountedFullConvergence(t *testing.T) {
	f := newFixture(t)
	target := filepath.Join(f.dir, "vol")
	require.NoError(t, os.Mkdir(target, 0755))
	f.writeTable(t, fmt.Sprintf("# header\n/dev/sdb1 %s xfs defaults 0 0\n", target))
	f.lister.mounts = map[string]string{"/": "/dev/sda1", target: "/dev/sdb1"}

	res, err := f.machine.Apply(Request{
		Name: target, Src: "/dev/sdb1", FSType: "xfs",
		State: Unmounted, Fstab: f.fstab,
	})
	require.NoError(t, err)

	assert.True(t, res.Changed)
	assert.Equal(t, "# header\n", f.tableContent(t))
	assert.Equal(t, []string{target}, f.mounter.unmountCalls)
	_, statErr := os.Stat(target)
	assert.True(t, os.IsNotExist(statErr), "mount point directory should be removed")
}

func TestUnmountedSkipsUnmountWhenNotMounted(t *testing.T) {
	f := newFixture(t)
	target := filepath.Join(f.dir, "vol")
	f.writeTable(t, fmt.Sprintf("/dev/sdb1 %s xfs defaults 0 0\n", target))

	res, err := f.machine.Apply(Request{
		Name: target, Src: "/dev/sdb1", FSType: "xfs",
		State: Unmounted, Fstab: f.fstab,
	})
	require.NoError(t, err)

	assert.True(t, res.Changed)
	assert.Empty(t, f.mounter.unmountCalls)
}

func TestUnmountedDoesNotRollBackOnUnmountFailure(t *testing.T) {
	f := newFixture(t)
	target := filepath.Join(f.dir, "vol")
	f.writeTable(t, fmt.Sprintf("/dev/sdb1 %s xfs defaults 0 0\n", target))
	f.lister.mounts = map[string]string{"/": "/dev/sda1", target: "/dev/sdb1"}
	f.mounter.unmountErr = &mount.ActionError{Action: "umount", Target: target, Err: fmt.Errorf("exit status 32")}

	_, err := f.machine.Apply(Request{
		Name: target, Src: "/dev/sdb1", FSType: "xfs",
		State: Unmounted, Fstab: f.fstab,
	})
	require.Error(t, err)

	// Absence is already the correct table content; no compensation
	assert.Empty(t, f.tableContent(t))
}

func TestUnmountedFailsOnNonEmptyMountPoint(t *testing.T) {
	f := newFixture(t)
	target := filepath.Join(f.dir, "vol")
	require.NoError(t, os.MkdirAll(filepath.Join(target, "data"), 0755))
	f.writeTable(t, "")

	_, err := f.machine.Apply(Request{
		Name: target, Src: "/dev/sdb1", FSType: "xfs",
		State: Unmounted, Fstab: f.fstab,
	})
	require.Error(t, err)

	var aerr *mount.ActionError
	assert.ErrorAs(t, err, &aerr)
	// The non-recursive remove refused to destroy the data underneath
	_, statErr := os.Stat(filepath.Join(target, "data"))
	assert.NoError(t, statErr)
}

func TestApplyFailsWhenMountListUnavailable(t *testing.T) {
	f := newFixture(t)
	f.lister.err = &mount.QueryError{Err: fmt.Errorf("exit status 1")}

	_, err := f.machine.Apply(dvdRequest(f, Present))
	require.Error(t, err)

	var qerr *mount.QueryError
	assert.ErrorAs(t, err, &qerr)
	// No side effects: the table file was never created
	_, statErr := os.Stat(f.fstab)
	assert.True(t, os.IsNotExist(statErr))
}

func TestApplyRejectsUnknownState(t *testing.T) {
	f := newFixture(t)

	_, err := f.machine.Apply(Request{
		Name: "/mnt/x", Src: "/dev/sda1", FSType: "ext4",
		State: State("paused"), Fstab: f.fstab,
	})
	assert.Error(t, err)
}
