// Package store provides the paged read source the distributer scans. The
// relational store itself is an external collaborator per the system's
// scope (seeding and schema management live outside this module); this
// package only knows how to open a connection and run the ordered,
// offset-bounded scans the paged reader needs.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/flowmesh/distributer/internal/flow"
)

// PagedSource is the paged read contract the distributer's paged reader
// depends on. It is intentionally narrow: an ordered, offset/limit scan
// plus a row count, so any relational store (or a fake, for tests) can
// stand in for it.
type PagedSource interface {
	// RowCount returns the total number of rows in the source table.
	RowCount(ctx context.Context) (int64, error)

	// ReadPage returns up to limit rows ordered by flow_id, starting at
	// offset. It may return fewer than limit rows (including zero) when
	// the window runs past the end of the table.
	ReadPage(ctx context.Context, offset, limit int) (flow.Batch, error)
}

// SQLStore is the reference PagedSource, backed by database/sql. The
// distributer's default binary wires it to modernc.org/sqlite (pure Go,
// no cgo); any database/sql driver that supports standard
// "LIMIT ... OFFSET ..." paging works equally well.
type SQLStore struct {
	db    *sql.DB
	table string
}

// Open opens dsn with the given database/sql driver name and wraps it as
// a SQLStore scanning rows from table.
func Open(driverName, dsn, table string) (*SQLStore, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", driverName, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging %s store: %w", driverName, err)
	}
	return &SQLStore{db: db, table: table}, nil
}

// Close releases the underlying database/sql connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the source table if it does not already exist. The
// live distribution pipeline does not call this — bulk load/seeding is an
// out-of-scope collaborator — but it lets tests and local development
// stand up a throwaway netflow table without a separate loader.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		flow_id INTEGER PRIMARY KEY,
		src_ip TEXT,
		dst_ip TEXT,
		src_port INTEGER,
		dst_port INTEGER,
		protocol INTEGER,
		bytes INTEGER,
		packets INTEGER,
		start_ts INTEGER,
		end_ts INTEGER,
		src_asn INTEGER,
		dst_asn INTEGER
	)`, s.table)
	_, err := s.db.ExecContext(ctx, stmt)
	if err != nil {
		return fmt.Errorf("creating %s table: %w", s.table, err)
	}
	return nil
}

// RowCount implements PagedSource.
func (s *SQLStore) RowCount(ctx context.Context) (int64, error) {
	var n int64
	row := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table))
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s rows: %w", s.table, err)
	}
	return n, nil
}

// ReadPage implements PagedSource: rows ordered by flow_id, windowed by
// LIMIT/OFFSET. This is the fixed-offset partitioning the system relies
// on — see internal/distributer's paged reader doc comment for the
// quiescent-source precondition this implies.
func (s *SQLStore) ReadPage(ctx context.Context, offset, limit int) (flow.Batch, error) {
	query := fmt.Sprintf(`SELECT flow_id, src_ip, dst_ip, src_port, dst_port, protocol,
		bytes, packets, start_ts, end_ts, src_asn, dst_asn
		FROM %s ORDER BY flow_id LIMIT ? OFFSET ?`, s.table)

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("reading %s page (offset=%d limit=%d): %w", s.table, offset, limit, err)
	}
	defer rows.Close()

	batch := make(flow.Batch, 0, limit)
	for rows.Next() {
		var (
			flowID                     int64
			srcIP, dstIP               sql.NullString
			srcPort, dstPort, protocol sql.NullInt64
			bytesV, packets            sql.NullInt64
			startTS, endTS             sql.NullInt64
			srcASN, dstASN             sql.NullInt64
		)
		if err := rows.Scan(&flowID, &srcIP, &dstIP, &srcPort, &dstPort, &protocol,
			&bytesV, &packets, &startTS, &endTS, &srcASN, &dstASN); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", s.table, err)
		}

		rec := flow.Record{
			FlowID:   flowID,
			SrcIP:    nullString(srcIP),
			DstIP:    nullString(dstIP),
			SrcPort:  nullInt32(srcPort),
			DstPort:  nullInt32(dstPort),
			Protocol: nullInt16(protocol),
			Bytes:    nullInt64(bytesV),
			Packets:  nullInt64(packets),
			StartTS:  nullInt64(startTS),
			EndTS:    nullInt64(endTS),
			SrcASN:   nullInt32(srcASN),
			DstASN:   nullInt32(dstASN),
		}
		batch = append(batch, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s rows: %w", s.table, err)
	}
	return batch, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullInt16(v sql.NullInt64) *int16 {
	if !v.Valid {
		return nil
	}
	i := int16(v.Int64)
	return &i
}

func nullInt32(v sql.NullInt64) *int32 {
	if !v.Valid {
		return nil
	}
	i := int32(v.Int64)
	return &i
}

func nullInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	i := v.Int64
	return &i
}
