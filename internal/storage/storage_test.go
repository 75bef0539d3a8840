package storage

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"
)

func backends(t *testing.T) map[string]Storage {
	t.Helper()
	dir := t.TempDir()

	disk, err := OpenDisk(filepath.Join(dir, "disk"))
	if err != nil {
		t.Fatalf("open disk: %v", err)
	}
	lite, err := OpenSQLite(filepath.Join(dir, "kv.sqlite"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = lite.Close() })

	return map[string]Storage{
		"memory": NewMemory(),
		"disk":   disk,
		"sqlite": lite,
	}
}

func TestBackendsContract(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := s.Get("missing"); err != nil || ok {
				t.Fatalf("get missing = ok:%v err:%v", ok, err)
			}
			if err := s.Remove("missing"); err != nil {
				t.Fatalf("remove missing: %v", err)
			}

			if err := s.Set("meno_events", `{"2026-1-1":[]}`); err != nil {
				t.Fatalf("set: %v", err)
			}
			if err := s.Set("flag", "1"); err != nil {
				t.Fatalf("set flag: %v", err)
			}
			if err := s.Set("flag", "2"); err != nil {
				t.Fatalf("overwrite: %v", err)
			}

			v, ok, err := s.Get("flag")
			if err != nil || !ok || v != "2" {
				t.Fatalf("get flag = %q ok:%v err:%v", v, ok, err)
			}

			keys, err := s.Keys()
			if err != nil {
				t.Fatal(err)
			}
			if want := []string{"flag", "meno_events"}; !reflect.DeepEqual(keys, want) {
				t.Fatalf("keys = %v, want %v", keys, want)
			}

			if err := s.Remove("flag"); err != nil {
				t.Fatal(err)
			}
			if _, ok, _ := s.Get("flag"); ok {
				t.Fatal("flag still present after remove")
			}
		})
	}
}

func TestDiskPersistsAcrossOpen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	s, err := OpenDisk(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set("k", "v"); err != nil {
		t.Fatal(err)
	}

	again, err := OpenDisk(dir)
	if err != nil {
		t.Fatal(err)
	}
	if v, ok, _ := again.Get("k"); !ok || v != "v" {
		t.Fatalf("reopened get = %q ok:%v", v, ok)
	}
}

func TestQuota(t *testing.T) {
	s := WithQuota(NewMemory(), 10)
	if err := s.Set("a", "12345"); err != nil {
		t.Fatal(err)
	}
	// Replacing a key only counts its new value.
	if err := s.Set("a", "1234567890"); err != nil {
		t.Fatalf("replace within quota: %v", err)
	}
	err := s.Set("b", "x")
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("err = %v, want ErrQuotaExceeded", err)
	}
	if _, ok, _ := s.Get("b"); ok {
		t.Fatal("rejected write was stored")
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open("redis", ""); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestDiskSeesWritesFromAnotherHandle(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shared")
	server, err := OpenDisk(dir)
	if err != nil {
		t.Fatal(err)
	}
	cli, err := OpenDisk(dir)
	if err != nil {
		t.Fatal(err)
	}

	if err := server.Set("meno_events", `{"a":1}`); err != nil {
		t.Fatal(err)
	}
	if v, _, _ := server.Get("meno_events"); v != `{"a":1}` {
		t.Fatalf("first read = %q", v)
	}
	if err := cli.Set("meno_events", `{"b":2}`); err != nil {
		t.Fatal(err)
	}
	if v, ok, err := server.Get("meno_events"); err != nil || !ok || v != `{"b":2}` {
		t.Fatalf("read after other write = %q ok:%v err:%v", v, ok, err)
	}
}
