package retain

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name      string
		backup    bool
		allOK     bool
		canonical bool
		want      Decision
	}{
		{"success no backup", false, true, false, DecisionDeleteOriginal},
		{"success with backup", true, true, false, DecisionMoveToBackup},
		{"failure no backup", false, false, false, DecisionLeaveInPlace},
		{"failure with backup", true, false, false, DecisionLeaveInPlace},
		{"canonical success no backup", false, true, true, DecisionDeleteOriginal},
		{"canonical success with backup", true, true, true, DecisionLeaveInPlace},
		{"canonical failure", false, false, true, DecisionLeaveInPlace},
		{"canonical failure with backup", true, false, true, DecisionLeaveInPlace},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.backup, tt.allOK, tt.canonical)
			if got != tt.want {
				t.Fatalf("Decide(%v, %v, %v) = %v, want %v",
					tt.backup, tt.allOK, tt.canonical, got, tt.want)
			}
		})
	}
}

func TestApplyDelete(t *testing.T) {
	work := t.TempDir()
	path := filepath.Join(work, "old.tar.gz")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := NewPolicy(work, "OldArchives")
	if err := p.Apply(DecisionDeleteOriginal, path); err != nil {
		t.Fatalf("Apply(delete) error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("original still exists after delete")
	}
	// Deleting must not create the backup directory.
	if _, err := os.Stat(p.BackupDir()); !os.IsNotExist(err) {
		t.Fatal("backup directory created by delete decision")
	}
}

func TestApplyMoveCreatesBackupDirLazily(t *testing.T) {
	work := t.TempDir()
	first := filepath.Join(work, "a.zip")
	second := filepath.Join(work, "b.zip")
	for _, p := range []string{first, second} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	p := NewPolicy(work, "OldArchives")
	if _, err := os.Stat(p.BackupDir()); !os.IsNotExist(err) {
		t.Fatal("backup directory exists before first use")
	}

	if err := p.Apply(DecisionMoveToBackup, first); err != nil {
		t.Fatalf("Apply(move) error = %v", err)
	}
	// Second move exercises create-if-absent idempotence.
	if err := p.Apply(DecisionMoveToBackup, second); err != nil {
		t.Fatalf("Apply(move) second input error = %v", err)
	}

	for _, name := range []string{"a.zip", "b.zip"} {
		if _, err := os.Stat(filepath.Join(p.BackupDir(), name)); err != nil {
			t.Fatalf("backup missing %s: %v", name, err)
		}
	}
	if _, err := os.Stat(first); !os.IsNotExist(err) {
		t.Fatal("original still at source after move")
	}
}

func TestApplyLeaveInPlace(t *testing.T) {
	work := t.TempDir()
	path := filepath.Join(work, "keep.rar")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := NewPolicy(work, "OldArchives")
	if err := p.Apply(DecisionLeaveInPlace, path); err != nil {
		t.Fatalf("Apply(leave) error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("original disturbed by leave decision: %v", err)
	}
}

func TestMutualExclusivity(t *testing.T) {
	// For a successful conversion exactly one terminal decision holds.
	for _, backup := range []bool{true, false} {
		for _, canonical := range []bool{true, false} {
			d := Decide(backup, true, canonical)
			count := 0
			for _, candidate := range []Decision{DecisionDeleteOriginal, DecisionMoveToBackup, DecisionLeaveInPlace} {
				if d == candidate {
					count++
				}
			}
			if count != 1 {
				t.Fatalf("backup=%v canonical=%v produced %d decisions", backup, canonical, count)
			}
		}
	}
}
