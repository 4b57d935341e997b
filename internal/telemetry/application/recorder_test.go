package application

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/YoussefMadkour/SmartGen-Energy-AI/internal/eventing"
	"github.com/YoussefMadkour/SmartGen-Energy-AI/internal/telemetry/application/events"
	"github.com/YoussefMadkour/SmartGen-Energy-AI/internal/telemetry/domain"
)

type stubReadingRepo struct {
	inserted []telemetry.Reading
	batches  [][]telemetry.Reading
	err      error
	nextID   int64
}

func (s *stubReadingRepo) Insert(_ context.Context, reading telemetry.Reading) (telemetry.Reading, error) {
	if s.err != nil {
		return telemetry.Reading{}, s.err
	}
	s.nextID++
	reading.ID = s.nextID
	s.inserted = append(s.inserted, reading)
	return reading, nil
}

func (s *stubReadingRepo) InsertBatch(_ context.Context, readings []telemetry.Reading) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.batches = append(s.batches, readings)
	return len(readings), nil
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestRecordNormalizesAndPublishes(t *testing.T) {
	repo := &stubReadingRepo{}
	bus := eventing.NewInMemoryBus()

	var received []events.ReadingRecorded
	bus.Subscribe(eventing.EventTypeOf[events.ReadingRecorded](), func(_ context.Context, event any) error {
		evt, ok := event.(events.ReadingRecorded)
		if !ok {
			return eventing.ErrInvalidEventType
		}
		received = append(received, evt)
		return nil
	})

	recorder, err := NewRecorder(repo, bus, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	local := time.FixedZone("UTC+3", 3*3600)
	stored, err := recorder.Record(context.Background(), telemetry.Reading{
		Timestamp:   time.Date(2025, 11, 14, 13, 0, 0, 0, local),
		PowerLoadKW: 120,
		FuelRateLPH: 36,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.ID != 1 {
		t.Fatalf("expected assigned id 1, got %d", stored.ID)
	}
	if stored.Status != telemetry.StatusOn {
		t.Fatalf("expected default status ON, got %q", stored.Status)
	}
	want := time.Date(2025, 11, 14, 10, 0, 0, 0, time.UTC)
	if !stored.Timestamp.Equal(want) || stored.Timestamp.Location() != time.UTC {
		t.Fatalf("expected UTC timestamp %v, got %v", want, stored.Timestamp)
	}
	if len(received) != 1 {
		t.Fatalf("expected 1 event, got %d", len(received))
	}
	if received[0].PowerLoadKW != 120 || received[0].Status != telemetry.StatusOn {
		t.Fatalf("unexpected event payload: %+v", received[0])
	}
}

func TestRecordRejectsInvalidReading(t *testing.T) {
	repo := &stubReadingRepo{}
	recorder, err := NewRecorder(repo, nil, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = recorder.Record(context.Background(), telemetry.Reading{
		Timestamp:   time.Now(),
		PowerLoadKW: -5,
	})
	if !errors.Is(err, telemetry.ErrInvalidReading) {
		t.Fatalf("expected ErrInvalidReading, got %v", err)
	}
	if len(repo.inserted) != 0 {
		t.Fatalf("expected no insert, got %d", len(repo.inserted))
	}
}

func TestRecordBatchAllOrNothing(t *testing.T) {
	repo := &stubReadingRepo{}
	recorder, err := NewRecorder(repo, nil, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now := time.Now().UTC()
	_, err = recorder.RecordBatch(context.Background(), []telemetry.Reading{
		{Timestamp: now, PowerLoadKW: 100, FuelRateLPH: 30},
		{Timestamp: now, PowerLoadKW: 100, FuelRateLPH: -1},
	})
	if !errors.Is(err, telemetry.ErrInvalidReading) {
		t.Fatalf("expected ErrInvalidReading, got %v", err)
	}
	if len(repo.batches) != 0 {
		t.Fatalf("expected no batch insert, got %d", len(repo.batches))
	}
}

func TestRecordBatchPublishesEachReading(t *testing.T) {
	repo := &stubReadingRepo{}
	bus := eventing.NewInMemoryBus()

	published := 0
	bus.Subscribe(eventing.EventTypeOf[events.ReadingRecorded](), func(context.Context, any) error {
		published++
		return nil
	})

	recorder, err := NewRecorder(repo, bus, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now := time.Now().UTC()
	count, err := recorder.RecordBatch(context.Background(), []telemetry.Reading{
		{Timestamp: now, PowerLoadKW: 100, FuelRateLPH: 30},
		{Timestamp: now.Add(2 * time.Second), PowerLoadKW: 110, FuelRateLPH: 33},
		{Timestamp: now.Add(4 * time.Second), PowerLoadKW: 90, FuelRateLPH: 27},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 stored, got %d", count)
	}
	if published != 3 {
		t.Fatalf("expected 3 events, got %d", published)
	}
}

func TestRecordStorageFailure(t *testing.T) {
	repoErr := errors.New("insert failed")
	recorder, err := NewRecorder(&stubReadingRepo{err: repoErr}, nil, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = recorder.Record(context.Background(), telemetry.Reading{
		Timestamp:   time.Now().UTC(),
		PowerLoadKW: 100,
		FuelRateLPH: 30,
	})
	if !errors.Is(err, repoErr) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestNewRecorderRequiresRepository(t *testing.T) {
	if _, err := NewRecorder(nil, nil, testLogger()); err == nil {
		t.Fatalf("expected error for nil repository")
	}
}
