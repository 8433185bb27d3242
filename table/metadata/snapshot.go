package metadata

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/zhukovaskychina/xiceberg/util"
)

// 快照操作类型
const (
	OPERATION_APPEND    = "append"
	OPERATION_REPLACE   = "replace"
	OPERATION_OVERWRITE = "overwrite"
	OPERATION_DELETE    = "delete"
)

// 快照摘要中由提交累计维护的总量键，added-* 为单次提交的增量键
const (
	SUMMARY_ADDED_RECORDS    = "added-records"
	SUMMARY_ADDED_FILES_SIZE = "added-files-size"
	SUMMARY_ADDED_DATA_FILES = "added-data-files"
	SUMMARY_TOTAL_RECORDS    = "total-records"
	SUMMARY_TOTAL_FILES_SIZE = "total-files-size"
	SUMMARY_TOTAL_DATA_FILES = "total-data-files"
)

// Snapshot is an immutable record of the table state produced by one commit
// 表示一次提交产生的表状态快照
type Snapshot struct {
	SnapshotID       int64             `json:"snapshot-id"`
	ParentSnapshotID int64             `json:"parent-snapshot-id,omitempty"`
	SequenceNumber   int64             `json:"sequence-number"`
	TimestampMs      int64             `json:"timestamp-ms"`
	Operation        string            `json:"operation"`
	ManifestList     string            `json:"manifest-list,omitempty"`
	Summary          map[string]string `json:"summary,omitempty"`
}

// Clone returns a deep copy of the snapshot
func (s *Snapshot) Clone() *Snapshot {
	clone := *s
	if s.Summary != nil {
		clone.Summary = make(map[string]string, len(s.Summary))
		for k, v := range s.Summary {
			clone.Summary[k] = v
		}
	}
	return &clone
}

// SummaryValue returns a summary entry, or the default when absent
func (s *Snapshot) SummaryValue(key, defaultValue string) string {
	if s.Summary == nil {
		return defaultValue
	}
	if v, ok := s.Summary[key]; ok {
		return v
	}
	return defaultValue
}

// SnapshotLogEntry records when a snapshot became the current one
type SnapshotLogEntry struct {
	TimestampMs int64 `json:"timestamp-ms"`
	SnapshotID  int64 `json:"snapshot-id"`
}

// MetadataLogEntry records a superseded metadata file
type MetadataLogEntry struct {
	TimestampMs  int64  `json:"timestamp-ms"`
	MetadataFile string `json:"metadata-file"`
}

// NewSnapshotID produces a random positive snapshot id
func NewSnapshotID() int64 {
	id := int64(util.HashCode([]byte(uuid.New().String())))
	if id < 0 {
		id = -id
	}
	return id
}

// summary totals carried forward from parent to child snapshot
var summaryTotalKeys = [][2]string{
	{SUMMARY_ADDED_RECORDS, SUMMARY_TOTAL_RECORDS},
	{SUMMARY_ADDED_FILES_SIZE, SUMMARY_TOTAL_FILES_SIZE},
	{SUMMARY_ADDED_DATA_FILES, SUMMARY_TOTAL_DATA_FILES},
}

// accumulateSummaryTotals folds the parent snapshot totals and this commit's
// added-* entries into total-* entries. Totals are carried as decimal strings
// so they never overflow or lose precision.
func accumulateSummaryTotals(parent *Snapshot, summary map[string]string) map[string]string {
	result := make(map[string]string, len(summary)+len(summaryTotalKeys))
	for k, v := range summary {
		result[k] = v
	}
	for _, pair := range summaryTotalKeys {
		addedKey, totalKey := pair[0], pair[1]

		total := decimal.Zero
		if parent != nil {
			if prev, err := decimal.NewFromString(parent.SummaryValue(totalKey, "0")); err == nil {
				total = prev
			}
		}
		if addedRaw, ok := summary[addedKey]; ok {
			added, err := decimal.NewFromString(addedRaw)
			if err != nil {
				continue
			}
			total = total.Add(added)
		} else if parent == nil {
			continue
		}
		result[totalKey] = total.String()
	}
	return result
}
