package domain

import "time"

// SessionLogEntry is one login/logout pair in the remote activity log.
// Logout is nil while the session is open.
type SessionLogEntry struct {
	Login  time.Time
	Logout *time.Time
}

// IsOpen reports whether the entry has no logout time yet.
func (e SessionLogEntry) IsOpen() bool {
	return e.Logout == nil
}

// MergeSessionLog applies a local login/logout pair to the remote log.
//
// A new open entry is appended when the log is empty or its last login differs
// from login; re-announcing the same login is a no-op. The last entry is then
// closed with logout only if it is still open and logout is strictly after
// login. A logout that fails that check is dropped. A zero login leaves the log
// untouched.
func MergeSessionLog(entries []SessionLogEntry, login time.Time, logout *time.Time) ([]SessionLogEntry, bool) {
	if login.IsZero() {
		return entries, false
	}
	login = Truncate(login)

	merged := make([]SessionLogEntry, len(entries), len(entries)+1)
	copy(merged, entries)
	changed := false

	if len(merged) == 0 || !Truncate(merged[len(merged)-1].Login).Equal(login) {
		merged = append(merged, SessionLogEntry{Login: login})
		changed = true
	}

	last := &merged[len(merged)-1]
	if last.IsOpen() && logout != nil {
		out := Truncate(*logout)
		if out.After(login) {
			last.Logout = &out
			changed = true
		}
	}

	return merged, changed
}

// OpenSessionCount returns how many entries lack a logout time.
func OpenSessionCount(entries []SessionLogEntry) int {
	n := 0
	for _, e := range entries {
		if e.IsOpen() {
			n++
		}
	}
	return n
}

// LastEntry returns the most recent entry, if any.
func LastEntry(entries []SessionLogEntry) (SessionLogEntry, bool) {
	if len(entries) == 0 {
		return SessionLogEntry{}, false
	}
	return entries[len(entries)-1], true
}
