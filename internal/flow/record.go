// Package flow defines the unit of data moved through the pipeline: the
// netflow record and the batches it travels in.
package flow

// Record is a single netflow observation. FlowID is the only field that is
// never null and is the scan ordering key; every other field is an
// independently nullable pointer.
type Record struct {
	FlowID int64

	SrcIP *string
	DstIP *string

	SrcPort *int32
	DstPort *int32

	Protocol *int16

	Bytes   *int64
	Packets *int64

	StartTS *int64
	EndTS   *int64

	SrcASN *int32
	DstASN *int32
}

// Valid reports whether every field except SrcPort/DstPort is present.
// Ports may be null; all other fields must be non-nil.
func (r Record) Valid() bool {
	return r.SrcIP != nil &&
		r.DstIP != nil &&
		r.Protocol != nil &&
		r.Bytes != nil &&
		r.Packets != nil &&
		r.StartTS != nil &&
		r.EndTS != nil &&
		r.SrcASN != nil &&
		r.DstASN != nil
}

// MaxBatchSize is the inner page size: no Batch ever carries more records
// than this, since the paged reader sub-pages at this granularity.
const MaxBatchSize = 1000

// Batch is a finite ordered sequence of Records produced by one paged
// read. Ordering is preserved only within a single producer scan epoch and
// within a single source page — there is no cross-batch identifier.
type Batch []Record
