package service

import (
	"fmt"
	"os"
	"strings"
)

// Leadership elects a single writer through a shared lease file. The
// first node to create the file owns the election; everyone else sees
// another id inside and stays read-only. An empty path means
// single-node operation: always primary.
type Leadership struct {
	path   string
	nodeID string
}

func NewLeadership(path string) *Leadership {
	hostname, _ := os.Hostname()
	return &Leadership{
		path:   path,
		nodeID: fmt.Sprintf("%s-%d", hostname, os.Getpid()),
	}
}

// Acquire tries to claim the lease. Losing the election is not an
// error, the node just comes up as a non-primary.
func (l *Leadership) Acquire() error {
	if l.path == "" {
		return nil
	}
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	_, err = f.WriteString(l.nodeID)
	return err
}

// IsPrimary reports whether this node holds the lease. Re-reads the
// file every call so a handed-over lease is observed without restart.
func (l *Leadership) IsPrimary() bool {
	if l.path == "" {
		return true
	}
	data, err := os.ReadFile(l.path)
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(data)) == l.nodeID
}

// Release gives the lease up if this node owns it.
func (l *Leadership) Release() {
	if l.path == "" || !l.IsPrimary() {
		return
	}
	os.Remove(l.path)
}
