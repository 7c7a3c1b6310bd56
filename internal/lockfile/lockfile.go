// Package lockfile reads and writes addenda.lock files. A lock file records
// the checksum chain of a migration set so that edits to units that were
// already shared can be detected before they reach a database.
//
// Format: the head checksum, then one line per unit:
//
//	<checksum> <content> <unit> <name>
package lockfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hlop3z/addenda/internal/alerr"
	"github.com/hlop3z/addenda/internal/chain"
)

// DefaultPath is the lock file name, kept next to addenda.yaml.
const DefaultPath = "addenda.lock"

// LockFile is the parsed contents of a lock file.
type LockFile struct {
	Head  string
	Links []chain.Link
}

// Read reads and parses a lock file. It returns nil if the file does not
// exist.
func Read(path string) (*LockFile, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, alerr.Wrap(alerr.ErrLockRead, err, "cannot read lock file").With("path", path)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	lf := &LockFile{Head: strings.TrimSpace(lines[0])}
	if lf.Head == "" {
		return nil, corrupt(path, "lock file is empty", 1)
	}

	prev := chain.Genesis
	for i, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, " ", 4)
		if len(parts) < 3 {
			return nil, corrupt(path, "malformed lock entry", i+2)
		}
		unit, err := strconv.Atoi(parts[2])
		if err != nil {
			return nil, corrupt(path, "malformed unit number", i+2)
		}
		link := chain.Link{Unit: unit, Checksum: parts[0], Content: parts[1], PrevChecksum: prev}
		if len(parts) == 4 {
			link.Name = parts[3]
		}
		lf.Links = append(lf.Links, link)
		prev = link.Checksum
	}

	if !chain.Relink(lf.Links) || (&chain.Chain{Links: lf.Links}).Head() != lf.Head {
		return nil, corrupt(path, "lock file checksums do not chain", 0).
			WithHelp("regenerate it with `addenda lock`")
	}
	return lf, nil
}

// Write writes the chain to path, replacing any existing lock file.
func Write(path string, c *chain.Chain) error {
	var sb strings.Builder
	sb.WriteString(c.Head() + "\n")
	for _, l := range c.Links {
		fmt.Fprintf(&sb, "%s %s %d %s\n", l.Checksum, l.Content, l.Unit, l.Name)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return alerr.Wrap(alerr.ErrLockRead, err, "cannot create lock file directory").With("path", path)
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return alerr.Wrap(alerr.ErrLockRead, err, "cannot write lock file").With("path", path)
	}
	return nil
}

// Verify compares c with the lock file at path. A missing lock file
// returns a nil result.
func Verify(path string, c *chain.Chain) (*chain.Result, error) {
	lf, err := Read(path)
	if err != nil || lf == nil {
		return nil, err
	}
	return c.Verify(lf.Links), nil
}

func corrupt(path, msg string, line int) *alerr.Error {
	e := alerr.New(alerr.ErrLockRead, msg).With("path", path)
	if line > 0 {
		e.With("line", line)
	}
	return e
}
