package feed

// ContentOperation is one action inside a ContentMutation. The set of
// implementations is closed: Upsert, Delete, DeleteByPrefix and DeleteAll.
type ContentOperation interface {
	contentOperation()
}

// Upsert inserts Value under Key, replacing any previous value.
type Upsert struct {
	Key   string
	Value []byte
}

// Delete removes Key if present.
type Delete struct {
	Key string
}

// DeleteByPrefix removes every key starting with Prefix.
type DeleteByPrefix struct {
	Prefix string
}

// DeleteAll clears the store.
type DeleteAll struct{}

func (Upsert) contentOperation()         {}
func (Delete) contentOperation()         {}
func (DeleteByPrefix) contentOperation() {}
func (DeleteAll) contentOperation()      {}

// ContentMutation is an ordered batch of operations against a content store.
// Operations are applied in order; the first failing operation stops the
// commit without undoing the ones before it.
type ContentMutation struct {
	Operations []ContentOperation
}

// NewContentMutation returns an empty mutation. Use the chaining helpers to
// add operations.
func NewContentMutation() *ContentMutation {
	return &ContentMutation{}
}

func (m *ContentMutation) Upsert(key string, value []byte) *ContentMutation {
	m.Operations = append(m.Operations, Upsert{Key: key, Value: value})
	return m
}

func (m *ContentMutation) Delete(key string) *ContentMutation {
	m.Operations = append(m.Operations, Delete{Key: key})
	return m
}

func (m *ContentMutation) DeleteByPrefix(prefix string) *ContentMutation {
	m.Operations = append(m.Operations, DeleteByPrefix{Prefix: prefix})
	return m
}

func (m *ContentMutation) DeleteAll() *ContentMutation {
	m.Operations = append(m.Operations, DeleteAll{})
	return m
}

// JournalOperation is one action inside a JournalMutation. The set of
// implementations is closed: Append, Copy and DeleteJournal.
type JournalOperation interface {
	journalOperation()
}

// Append adds Value to the end of the mutation's journal, creating the
// journal if needed. A nil Value fails the commit.
type Append struct {
	Value []byte
}

// Copy snapshots the mutation's journal into a new journal named To.
// It fails if To already exists and is a no-op if the source is missing.
type Copy struct {
	To string
}

// DeleteJournal removes the mutation's journal if present.
type DeleteJournal struct{}

func (Append) journalOperation()        {}
func (Copy) journalOperation()          {}
func (DeleteJournal) journalOperation() {}

// JournalMutation targets a single journal with an ordered list of
// operations.
type JournalMutation struct {
	JournalName string
	Operations  []JournalOperation
}

// NewJournalMutation returns an empty mutation for the named journal.
func NewJournalMutation(journalName string) *JournalMutation {
	return &JournalMutation{JournalName: journalName}
}

func (m *JournalMutation) Append(value []byte) *JournalMutation {
	m.Operations = append(m.Operations, Append{Value: value})
	return m
}

func (m *JournalMutation) Copy(to string) *JournalMutation {
	m.Operations = append(m.Operations, Copy{To: to})
	return m
}

func (m *JournalMutation) Delete() *JournalMutation {
	m.Operations = append(m.Operations, DeleteJournal{})
	return m
}
