package pulpit

// LogItemKind tags the variant of a LogItem.
type LogItemKind int

const (
	LogInsert LogItemKind = iota
	LogUpdate
	LogDelete
)

// LogItem is one entry of a table's transaction log (§4.5). Insert
// records only the key (undoing it means dropping the row); Update
// records the previous values of whatever fields the mapping touched;
// Delete records the entire row, so it can be replaced at its original
// key on rollback.
type LogItem struct {
	Kind LogItemKind
	Key  RowKey

	// Update only: previous values of the mutated fields.
	OldFields Row

	// Delete only: the full row as it was before deletion, plus the
	// generation it held, so BlocksWithFree/GenArena.Place can restore it
	// exactly.
	OldRow Row
	OldGen uint32
}

// TransactionLog accumulates LogItems for one table. Rollback disables
// logging on itself to avoid recording the very operations that undo the
// log (§4.5).
type TransactionLog struct {
	items      []LogItem
	inRollback bool
}

// Enabled reports whether new items should be appended right now.
func (t *TransactionLog) Enabled() bool { return !t.inRollback }

// Record appends an item, unless a rollback is in progress.
func (t *TransactionLog) Record(item LogItem) {
	if t.inRollback {
		return
	}
	t.items = append(t.items, item)
}

// Commit clears the log without undoing anything.
func (t *TransactionLog) Commit() {
	t.items = t.items[:0]
}

// Len reports how many items are logged.
func (t *TransactionLog) Len() int { return len(t.items) }

// ItemsNewestFirst exposes the log from newest to oldest, for Abort to
// replay.
func (t *TransactionLog) ItemsNewestFirst() []LogItem {
	rev := make([]LogItem, len(t.items))
	for i := range t.items {
		rev[i] = t.items[len(t.items)-1-i]
	}
	return rev
}

// BeginRollback / EndRollback bracket an abort() so Record becomes a
// no-op for its duration.
func (t *TransactionLog) BeginRollback() { t.inRollback = true }
func (t *TransactionLog) EndRollback() {
	t.inRollback = false
	t.items = t.items[:0]
}
