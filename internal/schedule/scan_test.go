package schedule

import (
	"os"
	"path/filepath"
	"testing"
)

func mkdir(t *testing.T, base, name string) string {
	t.Helper()
	path := filepath.Join(base, name)
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", name, err)
	}
	return path
}

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("touch %s: %v", name, err)
	}
	return path
}

func TestScanPicksUpScheduleEntries(t *testing.T) {
	base := t.TempDir()
	mkdir(t, base, "mon-7:mon-22")
	mkdir(t, base, "sat-22:sun-7")
	mkdir(t, base, "default")
	mkdir(t, base, "not-a-schedule")  // junk directory name
	mkdir(t, base, "mon-24:tue-3")    // hour out of range
	touch(t, base, "fri-18:mon-6")    // file, not a directory
	touch(t, base, "readme.txt")

	pools, err := NewLibrary(base).Scan()
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(pools) != 3 {
		t.Fatalf("expected 3 pools, got %d: %+v", len(pools), pools)
	}

	byName := make(map[string]Pool, len(pools))
	for _, p := range pools {
		byName[p.Name] = p
	}

	if _, ok := byName["mon-7:mon-22"]; !ok {
		t.Error("missing mon-7:mon-22 pool")
	}
	if _, ok := byName["sat-22:sun-7"]; !ok {
		t.Error("missing sat-22:sun-7 pool")
	}
	def, ok := byName["default"]
	if !ok || !def.IsDefault {
		t.Error("missing or mismarked default pool")
	}
}

func TestScanReflectsFilesystemChanges(t *testing.T) {
	base := t.TempDir()
	lib := NewLibrary(base)

	pools, err := lib.Scan()
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(pools) != 0 {
		t.Fatalf("expected empty pool set, got %d", len(pools))
	}

	mkdir(t, base, "mon-7:mon-22")
	pools, err = lib.Scan()
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(pools) != 1 {
		t.Fatalf("expected new directory on next scan, got %d pools", len(pools))
	}
}

func TestScanMissingBaseDir(t *testing.T) {
	lib := NewLibrary(filepath.Join(t.TempDir(), "nope"))
	if _, err := lib.Scan(); err == nil {
		t.Fatal("expected error for missing base directory")
	}
}

func TestTracksListsRegularFilesOnly(t *testing.T) {
	base := t.TempDir()
	dir := mkdir(t, base, "mon-7:mon-22")

	touch(t, dir, "B.mp3")
	touch(t, dir, "a.mp3")
	touch(t, dir, "c.ogg") // not MP3, still a candidate
	mkdir(t, dir, "nested")

	target := touch(t, dir, "real.mp3")
	if err := os.Symlink(target, filepath.Join(dir, "link.mp3")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	pool := Pool{Name: "mon-7:mon-22", Dir: dir}
	tracks, err := pool.Tracks()
	if err != nil {
		t.Fatalf("tracks: %v", err)
	}

	want := []string{"a.mp3", "B.mp3", "c.ogg", "link.mp3", "real.mp3"}
	if len(tracks) != len(want) {
		t.Fatalf("expected %d tracks, got %d: %v", len(want), len(tracks), tracks)
	}
	for i, name := range want {
		if filepath.Base(tracks[i]) != name {
			t.Errorf("track %d: got %s, want %s", i, filepath.Base(tracks[i]), name)
		}
	}
}

func TestTracksEmptyPool(t *testing.T) {
	base := t.TempDir()
	dir := mkdir(t, base, "mon-7:mon-22")

	pool := Pool{Name: "mon-7:mon-22", Dir: dir}
	tracks, err := pool.Tracks()
	if err != nil {
		t.Fatalf("tracks: %v", err)
	}
	if len(tracks) != 0 {
		t.Fatalf("expected no tracks, got %v", tracks)
	}
}
