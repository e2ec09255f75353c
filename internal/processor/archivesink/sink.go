// Package archivesink provides an optional S3-backed archival sink for
// validated netflow records, layered alongside the in-memory sink rather
// than replacing it. It follows the same buffer-then-commit shape as the
// reference backup writer's temp-file-then-atomic-rename pattern, except
// the commit target is an object key in a bucket instead of a renamed
// local file, and the payload is gzip-compressed in parallel with pgzip
// instead of written raw.
package archivesink

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/pgzip"

	"github.com/flowmesh/distributer/internal/flow"
	"github.com/flowmesh/distributer/internal/wire"
)

// Sink buffers accepted records and periodically commits them to S3 as
// one gzip-compressed object per flush, keyed by flush timestamp. A
// flush is triggered by whichever comes first: the record-count
// threshold or the flush interval.
type Sink struct {
	client *s3.Client
	bucket string
	prefix string

	flushCount int
	logger     *slog.Logger

	mu      sync.Mutex
	buffer  []flow.Record
	cancel  context.CancelFunc
	done    chan struct{}
}

// New builds an archive Sink from the default AWS credential chain. It
// does not start the flush ticker; call Start for that.
func New(ctx context.Context, bucket, prefix string, flushCount int, logger *slog.Logger) (*Sink, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("archivesink: loading aws config: %w", err)
	}
	return &Sink{
		client:     s3.NewFromConfig(cfg),
		bucket:     bucket,
		prefix:     prefix,
		flushCount: flushCount,
		logger:     logger.With("component", "archive_sink", "bucket", bucket),
		done:       make(chan struct{}),
	}, nil
}

// Append adds records to the buffer, flushing immediately if the
// count threshold is reached. Append implements processor.Sink's shape
// without importing it, so the validator pool can wrap this in a
// processor.MultiSink alongside the in-memory sink.
func (s *Sink) Append(records []flow.Record) {
	if len(records) == 0 {
		return
	}
	s.mu.Lock()
	s.buffer = append(s.buffer, records...)
	full := len(s.buffer) >= s.flushCount
	s.mu.Unlock()

	if full {
		if err := s.Flush(context.Background()); err != nil {
			s.logger.Error("threshold flush failed", "error", err)
		}
	}
}

// Start begins the background flush ticker.
func (s *Sink) Start(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.Flush(context.Background()); err != nil {
					s.logger.Error("periodic flush failed", "error", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the flush ticker and commits whatever remains buffered.
func (s *Sink) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	if err := s.Flush(context.Background()); err != nil {
		s.logger.Error("final flush failed", "error", err)
	}
}

// Flush gzip-compresses the current buffer and uploads it as one object.
// An empty buffer is a no-op.
func (s *Sink) Flush(ctx context.Context) error {
	s.mu.Lock()
	if len(s.buffer) == 0 {
		s.mu.Unlock()
		return nil
	}
	batch := make(flow.Batch, len(s.buffer))
	copy(batch, s.buffer)
	s.buffer = s.buffer[:0]
	s.mu.Unlock()

	encoded := wire.EncodeBatch(batch)

	var gzBuf bytes.Buffer
	gw := pgzip.NewWriter(&gzBuf)
	if _, err := gw.Write(encoded); err != nil {
		return fmt.Errorf("archivesink: gzip write: %w", err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("archivesink: gzip close: %w", err)
	}

	key := fmt.Sprintf("%s%s.bin.gz", s.prefix, time.Now().UTC().Format("2006-01-02T15-04-05.000000000"))
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(gzBuf.Bytes()),
	})
	if err != nil {
		return fmt.Errorf("archivesink: uploading %s: %w", key, err)
	}

	s.logger.Info("archived batch", "records", len(batch), "key", key, "bytes", gzBuf.Len())
	return nil
}
