package metadata

import (
	jerrors "github.com/juju/errors"
	"github.com/zhukovaskychina/xiceberg/util"
)

// MetadataBuilder derives a new TableMetadata from a base one. The base is
// deep-copied up front and never mutated, Build returns the derived copy.
// 用于从已有元数据派生新版本的构建器，原有元数据不会被修改
type MetadataBuilder struct {
	base    *TableMetadata
	current *TableMetadata
	err     error
}

// NewMetadataBuilder creates a builder over a base metadata snapshot
func NewMetadataBuilder(base *TableMetadata) *MetadataBuilder {
	return &MetadataBuilder{
		base:    base,
		current: base.Clone(),
	}
}

// SetProperties sets table properties, reserved keys are rejected
func (b *MetadataBuilder) SetProperties(props map[string]string) *MetadataBuilder {
	if b.err != nil {
		return b
	}
	for k, v := range props {
		if IsReservedProperty(k) {
			b.err = jerrors.Annotatef(ErrReservedProperty, "cannot set %q", k)
			return b
		}
		if b.current.Properties == nil {
			b.current.Properties = make(map[string]string)
		}
		b.current.Properties[k] = v
	}
	return b
}

// RemoveProperties removes table properties, missing keys are ignored
func (b *MetadataBuilder) RemoveProperties(keys ...string) *MetadataBuilder {
	if b.err != nil {
		return b
	}
	for _, k := range keys {
		delete(b.current.Properties, k)
	}
	return b
}

// SetLocation moves the table root location
func (b *MetadataBuilder) SetLocation(location string) *MetadataBuilder {
	if b.err != nil {
		return b
	}
	if location == "" {
		b.err = jerrors.Annotate(ErrInvalidMetadata, "location is empty")
		return b
	}
	b.current.Location = location
	return b
}

// AddSnapshot appends a snapshot without making it current. The sequence
// number is assigned here and the summary totals are folded forward from the
// parent snapshot.
func (b *MetadataBuilder) AddSnapshot(snap *Snapshot) *MetadataBuilder {
	if b.err != nil {
		return b
	}
	if snap == nil {
		b.err = jerrors.Annotate(ErrInvalidMetadata, "nil snapshot")
		return b
	}
	if _, exists := b.current.SnapshotByID(snap.SnapshotID); exists {
		b.err = jerrors.Annotatef(ErrInvalidMetadata, "snapshot %d already exists", snap.SnapshotID)
		return b
	}

	added := snap.Clone()
	b.current.LastSequenceNumber++
	added.SequenceNumber = b.current.LastSequenceNumber
	if added.TimestampMs == 0 {
		added.TimestampMs = util.GetCurrentTimeMillis()
	}
	var parent *Snapshot
	if added.ParentSnapshotID != 0 {
		parent, _ = b.current.SnapshotByID(added.ParentSnapshotID)
	} else if cur := b.current.CurrentSnapshot(); cur != nil {
		added.ParentSnapshotID = cur.SnapshotID
		parent = cur
	}
	added.Summary = accumulateSummaryTotals(parent, added.Summary)

	b.current.Snapshots = append(b.current.Snapshots, added)
	return b
}

// SetCurrentSnapshot makes an existing snapshot the current one and records
// the change in the snapshot log
func (b *MetadataBuilder) SetCurrentSnapshot(snapshotID int64) *MetadataBuilder {
	if b.err != nil {
		return b
	}
	snap, ok := b.current.SnapshotByID(snapshotID)
	if !ok {
		b.err = jerrors.Annotatef(ErrSnapshotNotFound, "snapshot id %d", snapshotID)
		return b
	}
	b.current.CurrentSnapshotID = snap.SnapshotID
	b.current.SnapshotLog = append(b.current.SnapshotLog, &SnapshotLogEntry{
		TimestampMs: util.GetCurrentTimeMillis(),
		SnapshotID:  snap.SnapshotID,
	})
	return b
}

// AppendMetadataLog records the file that held the previous metadata version
func (b *MetadataBuilder) AppendMetadataLog(metadataFile string) *MetadataBuilder {
	if b.err != nil {
		return b
	}
	if metadataFile == "" {
		return b
	}
	b.current.MetadataLog = append(b.current.MetadataLog, &MetadataLogEntry{
		TimestampMs:  b.base.LastUpdatedMs,
		MetadataFile: metadataFile,
	})
	return b
}

// UpgradeFormatVersion raises the metadata format version, downgrades fail
func (b *MetadataBuilder) UpgradeFormatVersion(version int) *MetadataBuilder {
	if b.err != nil {
		return b
	}
	if version < b.current.FormatVersion {
		b.err = jerrors.Annotatef(ErrInvalidMetadata,
			"cannot downgrade format version %d to %d", b.current.FormatVersion, version)
		return b
	}
	if version != FORMAT_V1 && version != FORMAT_V2 {
		b.err = jerrors.Annotatef(ErrInvalidMetadata, "unsupported format version %d", version)
		return b
	}
	b.current.FormatVersion = version
	return b
}

// Build validates and returns the derived metadata
func (b *MetadataBuilder) Build() (*TableMetadata, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.current.LastUpdatedMs = util.GetCurrentTimeMillis()
	if err := b.current.Validate(); err != nil {
		return nil, err
	}
	return b.current, nil
}
