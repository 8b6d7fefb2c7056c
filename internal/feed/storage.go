package feed

// CommitResult is the outcome of applying a mutation. It is not an error:
// callers must check it. A Failure means some operation did not apply and
// earlier operations of the same mutation may already be visible.
type CommitResult int

const (
	Success CommitResult = iota
	Failure
)

func (r CommitResult) String() string {
	switch r {
	case Success:
		return "SUCCESS"
	case Failure:
		return "FAILURE"
	default:
		return "UNKNOWN"
	}
}

// ContentStorage is a key-value store of opaque, non-empty byte values.
type ContentStorage interface {
	// Get returns the values for the requested keys. Keys that are absent or
	// hold an empty value are left out of the result.
	Get(keys []string) (map[string][]byte, error)

	// GetAll returns every entry whose key starts with prefix. Unlike Get it
	// does not filter empty values.
	GetAll(prefix string) (map[string][]byte, error)

	// GetAllKeys returns a snapshot of every stored key, in no particular order.
	GetAllKeys() ([]string, error)

	// Commit applies the mutation's operations in order.
	Commit(m *ContentMutation) CommitResult

	// Dump reports usage counters.
	Dump() ContentCounters
}

// JournalStorage stores named, append-only sequences of byte values.
type JournalStorage interface {
	// Read returns the journal's entries in append order, or an empty slice
	// if the journal does not exist.
	Read(journalName string) ([][]byte, error)

	// Exists reports whether the journal has been created by an append and
	// not deleted since.
	Exists(journalName string) (bool, error)

	// GetAllJournals returns a snapshot of the existing journal names.
	GetAllJournals() ([]string, error)

	// Commit applies the mutation's operations in order to its journal.
	Commit(m *JournalMutation) CommitResult

	// DeleteAll removes every journal.
	DeleteAll() CommitResult

	// Dump reports usage counters.
	Dump() JournalCounters
}

// ContentCounters are informational counters kept by a ContentStorage.
type ContentCounters struct {
	Gets    int
	GetAlls int
	Inserts int
	Updates int
	Deletes int
	Size    int
}

// JournalCounters are informational counters kept by a JournalStorage.
// PerJournal counts operations applied to each journal name.
type JournalCounters struct {
	Reads      int
	Appends    int
	Copies     int
	Deletes    int
	PerJournal map[string]int
}

// Record counts one operation against the named journal.
func (c *JournalCounters) Record(journalName string) {
	if c.PerJournal == nil {
		c.PerJournal = make(map[string]int)
	}
	c.PerJournal[journalName]++
}

// Clone returns a copy that does not share the PerJournal map.
func (c JournalCounters) Clone() JournalCounters {
	out := c
	out.PerJournal = make(map[string]int, len(c.PerJournal))
	for k, v := range c.PerJournal {
		out.PerJournal[k] = v
	}
	return out
}
