package handle

import (
	"strconv"
	"sync"

	jerrors "github.com/juju/errors"
	"github.com/zhukovaskychina/xiceberg/logger"
	"github.com/zhukovaskychina/xiceberg/table/basic"
	"github.com/zhukovaskychina/xiceberg/table/metadata"
)

// 事务提交重试配置
const (
	PROPERTY_COMMIT_RETRIES = "commit.retry.num-retries"
	DEFAULT_COMMIT_RETRIES  = 4
)

// txStep is one staged update, replayable against a rebased metadata
type txStep func(*metadata.MetadataBuilder)

// Transaction stages metadata updates against a table without publishing
// them. Updates mutate only the pending metadata, the table and its storage
// stay untouched until CommitTransaction.
// 未提交前基表状态不变
type Transaction struct {
	mu       sync.Mutex
	table    *BaseTable
	base     *metadata.TableMetadata
	pending  *metadata.TableMetadata
	steps    []txStep
	finished bool
}

func newTransaction(table *BaseTable, base *metadata.TableMetadata) *Transaction {
	return &Transaction{table: table, base: base, pending: base.Clone()}
}

// applyStep runs one staged update against the pending metadata and records
// it for conflict replay
func (txn *Transaction) applyStep(step txStep) error {
	txn.mu.Lock()
	defer txn.mu.Unlock()
	if txn.finished {
		return basic.ErrTxFinished
	}
	builder := metadata.NewMetadataBuilder(txn.pending)
	step(builder)
	updated, err := builder.Build()
	if err != nil {
		return err
	}
	txn.pending = updated
	txn.steps = append(txn.steps, step)
	return nil
}

// UpdateProperties stages property changes
func (txn *Transaction) UpdateProperties() *PropertiesUpdate {
	return &PropertiesUpdate{txn: txn, sets: make(map[string]string)}
}

// UpdateLocation stages a location change
func (txn *Transaction) UpdateLocation() *LocationUpdate {
	return &LocationUpdate{txn: txn}
}

// Table returns a live view over the pending metadata, capturable and
// serializable like any table
func (txn *Transaction) Table() basic.Table {
	return &transactionTable{txn: txn}
}

// CommitTransaction publishes the pending metadata through the operations
// layer. On a version conflict the staged updates are replayed onto the
// refreshed metadata and the commit retried, bounded by the
// commit.retry.num-retries table property.
func (txn *Transaction) CommitTransaction() error {
	txn.mu.Lock()
	defer txn.mu.Unlock()
	if txn.finished {
		return basic.ErrTxFinished
	}
	retries := commitRetries(txn.pending)
	ops := txn.table.Operations()
	base, pending := txn.base, txn.pending
	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			fresh, rerr := ops.Refresh()
			if rerr != nil {
				return rerr
			}
			rebased, rerr := txn.replay(fresh)
			if rerr != nil {
				return rerr
			}
			base, pending = fresh, rebased
			logger.Debugf("transaction on %s retrying commit, attempt %d", txn.table.Name(), attempt)
		}
		err = ops.Commit(base, pending)
		if err == nil {
			txn.pending = pending
			txn.finished = true
			return nil
		}
		if !basic.IsCommitConflict(err) {
			return err
		}
	}
	return err
}

// replay applies every staged step in order onto a rebased metadata
func (txn *Transaction) replay(base *metadata.TableMetadata) (*metadata.TableMetadata, error) {
	current := base
	for _, step := range txn.steps {
		builder := metadata.NewMetadataBuilder(current)
		step(builder)
		next, err := builder.Build()
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

func commitRetries(meta *metadata.TableMetadata) int {
	raw := meta.Property(PROPERTY_COMMIT_RETRIES, "")
	if raw == "" {
		return DEFAULT_COMMIT_RETRIES
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return DEFAULT_COMMIT_RETRIES
	}
	return n
}

// PropertiesUpdate stages property sets and removes in the fluent style
type PropertiesUpdate struct {
	txn     *Transaction
	sets    map[string]string
	removes []string
}

// Set stages one property
func (u *PropertiesUpdate) Set(key, value string) *PropertiesUpdate {
	u.sets[key] = value
	return u
}

// Remove stages one property removal
func (u *PropertiesUpdate) Remove(key string) *PropertiesUpdate {
	u.removes = append(u.removes, key)
	return u
}

// Commit applies the staged changes to the pending metadata
func (u *PropertiesUpdate) Commit() error {
	for _, key := range u.removes {
		if _, ok := u.sets[key]; ok {
			return jerrors.Errorf("property %s both set and removed", key)
		}
	}
	sets := copyProperties(u.sets)
	removes := append([]string(nil), u.removes...)
	return u.txn.applyStep(func(b *metadata.MetadataBuilder) {
		if len(sets) > 0 {
			b.SetProperties(sets)
		}
		if len(removes) > 0 {
			b.RemoveProperties(removes...)
		}
	})
}

// LocationUpdate stages a table location change
type LocationUpdate struct {
	txn      *Transaction
	location string
}

// SetLocation stages the new location
func (u *LocationUpdate) SetLocation(location string) *LocationUpdate {
	u.location = location
	return u
}

// Commit applies the staged location to the pending metadata
func (u *LocationUpdate) Commit() error {
	if u.location == "" {
		return jerrors.Errorf("no location staged")
	}
	location := u.location
	return u.txn.applyStep(func(b *metadata.MetadataBuilder) {
		b.SetLocation(location)
	})
}

// transactionTable is the basic.Table view over a transaction's pending
// metadata
type transactionTable struct {
	txn *Transaction
}

func (t *transactionTable) pendingMetadata() *metadata.TableMetadata {
	t.txn.mu.Lock()
	defer t.txn.mu.Unlock()
	return t.txn.pending
}

func (t *transactionTable) metadataLocation() string {
	return t.txn.table.Operations().MetadataLocation()
}

func (t *transactionTable) Name() string {
	return t.txn.table.Name()
}

func (t *transactionTable) Location() string {
	return t.pendingMetadata().Location
}

func (t *transactionTable) Schema() *metadata.Schema {
	return t.pendingMetadata().CurrentSchema()
}

func (t *transactionTable) Spec() *metadata.PartitionSpec {
	return t.pendingMetadata().DefaultSpec()
}

func (t *transactionTable) SortOrder() *metadata.SortOrder {
	return t.pendingMetadata().DefaultSortOrder()
}

func (t *transactionTable) Properties() map[string]string {
	return t.pendingMetadata().Properties
}

func (t *transactionTable) CurrentSnapshot() *metadata.Snapshot {
	return t.pendingMetadata().CurrentSnapshot()
}

func (t *transactionTable) Snapshots() []*metadata.Snapshot {
	return t.pendingMetadata().Snapshots
}

func (t *transactionTable) Metadata() *metadata.TableMetadata {
	return t.pendingMetadata()
}

func (t *transactionTable) IO() (basic.FileIO, error) {
	return t.txn.table.IO()
}
