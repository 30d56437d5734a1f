package store

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DefaultBackupRetain is how many database snapshots are kept.
const DefaultBackupRetain = 10

// BackupManager keeps a rotating set of full database-file snapshots plus an
// append-only log of the mutating actions they protect. A snapshot is taken
// before each mutating operation; "restore" brings back the most recent
// snapshot and pops the matching action from the log.
type BackupManager struct {
	dbPath  string
	dir     string
	retain  int
	logPath string
}

// NewBackupManager creates a manager storing snapshots under dir.
// retain <= 0 falls back to DefaultBackupRetain.
func NewBackupManager(dbPath, dir string, retain int) (*BackupManager, error) {
	if dbPath == "" || dir == "" {
		return nil, fmt.Errorf("backup: database path and directory are required")
	}
	if retain <= 0 {
		retain = DefaultBackupRetain
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("backup: create directory: %w", err)
	}
	return &BackupManager{
		dbPath:  dbPath,
		dir:     dir,
		retain:  retain,
		logPath: filepath.Join(dir, "acoes.log"),
	}, nil
}

// Snapshot copies the database file into the backup directory, appends the
// action description to the log, and rotates old snapshots beyond the
// retention count. A missing database file (first run) is not an error: there
// is nothing to protect yet.
func (b *BackupManager) Snapshot(description string) error {
	if _, err := os.Stat(b.dbPath); os.IsNotExist(err) {
		return nil
	}

	name := fmt.Sprintf("%s_%s.bak", strings.TrimSuffix(filepath.Base(b.dbPath), filepath.Ext(b.dbPath)), time.Now().Format("20060102_150405.000"))
	dst := filepath.Join(b.dir, name)
	if err := copyFile(b.dbPath, dst); err != nil {
		return fmt.Errorf("backup: snapshot: %w", err)
	}

	if err := b.appendAction(description); err != nil {
		return err
	}
	return b.rotate()
}

// RestoreLatest replaces the live database file with the most recent snapshot
// and pops the most recent action from the log. The snapshot itself is
// consumed so a second restore steps one action further back.
func (b *BackupManager) RestoreLatest() (string, error) {
	snapshots, err := b.listSnapshots()
	if err != nil {
		return "", err
	}
	if len(snapshots) == 0 {
		return "", fmt.Errorf("backup: no snapshots available")
	}

	latest := snapshots[len(snapshots)-1]
	if err := copyFile(latest, b.dbPath); err != nil {
		return "", fmt.Errorf("backup: restore: %w", err)
	}
	if err := os.Remove(latest); err != nil {
		return "", fmt.Errorf("backup: drop restored snapshot: %w", err)
	}

	popped, err := b.popAction()
	if err != nil {
		return "", err
	}
	return popped, nil
}

// Actions returns the logged action descriptions, oldest first.
func (b *BackupManager) Actions() ([]string, error) {
	f, err := os.Open(b.logPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("backup: open action log: %w", err)
	}
	defer f.Close()

	var actions []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			actions = append(actions, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("backup: read action log: %w", err)
	}
	return actions, nil
}

func (b *BackupManager) appendAction(description string) error {
	f, err := os.OpenFile(b.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("backup: open action log: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] %s\n", time.Now().Format("2006-01-02 15:04:05"), description)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("backup: append action: %w", err)
	}
	return nil
}

func (b *BackupManager) popAction() (string, error) {
	actions, err := b.Actions()
	if err != nil {
		return "", err
	}
	if len(actions) == 0 {
		return "", nil
	}

	popped := actions[len(actions)-1]
	remaining := strings.Join(actions[:len(actions)-1], "\n")
	if remaining != "" {
		remaining += "\n"
	}
	if err := os.WriteFile(b.logPath, []byte(remaining), 0644); err != nil {
		return "", fmt.Errorf("backup: rewrite action log: %w", err)
	}
	return popped, nil
}

func (b *BackupManager) listSnapshots() ([]string, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, fmt.Errorf("backup: list snapshots: %w", err)
	}
	var snapshots []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".bak") {
			continue
		}
		snapshots = append(snapshots, filepath.Join(b.dir, entry.Name()))
	}
	// Names embed a sortable timestamp.
	sort.Strings(snapshots)
	return snapshots, nil
}

func (b *BackupManager) rotate() error {
	snapshots, err := b.listSnapshots()
	if err != nil {
		return err
	}
	for len(snapshots) > b.retain {
		if err := os.Remove(snapshots[0]); err != nil {
			return fmt.Errorf("backup: rotate: %w", err)
		}
		snapshots = snapshots[1:]
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
