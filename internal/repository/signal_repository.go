package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"FlowTrack/internal/domain/models"
	"FlowTrack/internal/domain/repository"
	pkgkafka "FlowTrack/pkg/kafka"
)

// ClickHouseArchive implements Archive over ClickHouse. The archive is a
// best-effort sink for offline review; emission never waits on it.
type ClickHouseArchive struct {
	db    *sql.DB
	table string
}

func NewClickHouseArchive(db *sql.DB, table string) repository.Archive {
	return &ClickHouseArchive{db: db, table: table}
}

func (a *ClickHouseArchive) Init(ctx context.Context) error {
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts DateTime64(3),
		id String,
		symbol LowCardinality(String),
		contract String,
		direction LowCardinality(String),
		dominant_type LowCardinality(String),
		decision LowCardinality(String),
		conviction Float64,
		premium Float64,
		payload String
	) ENGINE = MergeTree() ORDER BY (symbol, ts)`, a.table)
	_, err := a.db.ExecContext(ctx, q)
	return err
}

func (a *ClickHouseArchive) Store(ctx context.Context, sig *models.FlowSignal) error {
	payload, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}
	q := fmt.Sprintf("INSERT INTO %s (ts, id, symbol, contract, direction, dominant_type, decision, conviction, premium, payload) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", a.table)
	_, err = a.db.ExecContext(ctx, q,
		sig.Timestamp,
		sig.ID,
		sig.Symbol,
		sig.Contract.String(),
		string(sig.Direction),
		string(sig.DominantType),
		string(sig.Decision),
		sig.ConvictionScore,
		sig.Metrics.Premium,
		string(payload),
	)
	return err
}

func (a *ClickHouseArchive) Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.FlowSignal, error) {
	q := fmt.Sprintf("SELECT payload FROM %s WHERE symbol = ? AND ts >= ? AND ts <= ? ORDER BY ts DESC LIMIT ?", a.table)
	rows, err := a.db.QueryContext(ctx, q, symbol, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.FlowSignal
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var sig models.FlowSignal
		if err := json.Unmarshal([]byte(payload), &sig); err != nil {
			return nil, fmt.Errorf("unmarshal archived signal: %w", err)
		}
		out = append(out, &sig)
	}
	return out, rows.Err()
}

func (a *ClickHouseArchive) Health(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *ClickHouseArchive) Close() error {
	return nil // connection managed by pkg
}

// ArchivePublisher adapts an Archive to the Publisher fan-out used by the
// emitter, so storage rides the same path as the broker.
type ArchivePublisher struct {
	archive repository.Archive
}

func NewArchivePublisher(archive repository.Archive) repository.Publisher {
	return &ArchivePublisher{archive: archive}
}

func (p *ArchivePublisher) Publish(ctx context.Context, sig *models.FlowSignal) error {
	return p.archive.Store(ctx, sig)
}

func (p *ArchivePublisher) Close() error { return p.archive.Close() }

// KafkaSignalPublisher ships emitted signals to a Kafka topic, keyed by
// symbol so per-symbol ordering survives partitioning.
type KafkaSignalPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaSignalPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaSignalPublisher{producer: producer, topic: topic}
}

func (p *KafkaSignalPublisher) Publish(ctx context.Context, sig *models.FlowSignal) error {
	return p.producer.Publish(ctx, p.topic, []byte(sig.Symbol), sig)
}

func (p *KafkaSignalPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
