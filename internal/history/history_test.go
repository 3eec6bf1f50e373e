package history

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/suwandre/arbwatch/internal/models"
)

func sampleOpportunity(id string) models.Opportunity {
	return models.Opportunity{
		ID:              id,
		Symbol:          "ETH/BRL",
		BuyExchange:     "okx",
		SellExchange:    "kucoin",
		BuyPriceRaw:     1000,
		BuyPriceFeeAdj:  1000.2,
		SellPriceRaw:    1010,
		SellPriceFeeAdj: 1009.697,
		BuyFeeRate:      0.0002,
		SellFeeRate:     0.0003,
		Quantity:        4.999000199960007,
		CapitalInvested: 5000,
		CapitalReceived: 5047.475504899019,
		Profit:          47.47550489901914,
		ProfitPct:       0.9495100979803828,
		ObservedAt:      time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	return rows
}

func TestCSVRecorderWritesHeaderAndRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.csv")

	r, err := NewCSVRecorder(path)
	if err != nil {
		t.Fatalf("NewCSVRecorder: %v", err)
	}
	if err := r.Record(context.Background(), sampleOpportunity("1")); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rows := readCSV(t, path)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want header + 1", len(rows))
	}
	if strings.Join(rows[0], ",") != strings.Join(csvHeader, ",") {
		t.Fatalf("header = %v", rows[0])
	}
	want := []string{
		"2026-03-04 05:06:07", "okx", "1000.00", "1000.20", "kucoin", "1010.00", "1009.70",
		"4.9990", "5000.00", "5047.48", "47.48", "0.95",
	}
	if strings.Join(rows[1], ",") != strings.Join(want, ",") {
		t.Fatalf("row = %v, want %v", rows[1], want)
	}
}

func TestCSVRecorderAppendsAcrossRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.csv")

	for i := 0; i < 2; i++ {
		r, err := NewCSVRecorder(path)
		if err != nil {
			t.Fatalf("NewCSVRecorder: %v", err)
		}
		if err := r.Record(context.Background(), sampleOpportunity("x")); err != nil {
			t.Fatalf("Record: %v", err)
		}
		_ = r.Close()
	}

	rows := readCSV(t, path)
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2 (no truncation, single header)", len(rows))
	}
}

func TestCSVRecorderCancelledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.csv")
	r, err := NewCSVRecorder(path)
	if err != nil {
		t.Fatalf("NewCSVRecorder: %v", err)
	}
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Record(ctx, sampleOpportunity("1")); err == nil {
		t.Fatal("expected error on cancelled context")
	}
	if rows := readCSV(t, path); len(rows) != 1 {
		t.Fatalf("cancelled record leaked a row: %v", rows)
	}
}

type fakeExec struct {
	sql  []string
	args [][]any
	err  error
}

func (f *fakeExec) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql = append(f.sql, sql)
	f.args = append(f.args, args)
	return pgconn.NewCommandTag("INSERT 0 1"), f.err
}

func TestPostgresRecorderInsert(t *testing.T) {
	db := &fakeExec{}
	r := &PostgresRecorder{db: db}

	if err := r.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	opp := sampleOpportunity("7b0f2b4e-3f8a-4a36-9d1b-2f8f0a0d8c11")
	if err := r.Record(context.Background(), opp); err != nil {
		t.Fatalf("Record: %v", err)
	}

	if len(db.sql) != 2 || !strings.Contains(db.sql[0], "CREATE TABLE IF NOT EXISTS opportunity_history") {
		t.Fatalf("unexpected statements: %v", db.sql)
	}
	if !strings.Contains(db.sql[1], "ON CONFLICT (id) DO NOTHING") {
		t.Fatal("insert must not overwrite existing rows")
	}
	args := db.args[1]
	if len(args) != 17 || args[0] != opp.ID || args[3] != "okx" || args[7] != "kucoin" {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestPostgresRecorderWrapsError(t *testing.T) {
	r := &PostgresRecorder{db: &fakeExec{err: errors.New("connection reset")}}
	err := r.Record(context.Background(), sampleOpportunity("abc"))
	if err == nil || !strings.Contains(err.Error(), "abc") {
		t.Fatalf("expected wrapped error naming the opportunity, got %v", err)
	}
}

type fakePutter struct {
	inputs []*s3.PutObjectInput
	bodies [][]byte
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, _ := io.ReadAll(in.Body)
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3RecorderObjectLayout(t *testing.T) {
	p := &fakePutter{}
	r := newS3Recorder(p, "bucket", "/opportunities/")

	if err := r.Record(context.Background(), sampleOpportunity("abc")); err != nil {
		t.Fatalf("Record: %v", err)
	}

	in := p.inputs[0]
	if *in.Bucket != "bucket" || *in.Key != "opportunities/2026/03/04/abc.json" {
		t.Fatalf("bucket/key = %s %s", *in.Bucket, *in.Key)
	}
	if in.IfNoneMatch == nil || *in.IfNoneMatch != "*" {
		t.Fatal("object writes must be conditional on absence")
	}

	var got models.Opportunity
	if err := json.Unmarshal(p.bodies[0], &got); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if got.ID != "abc" || got.BuyExchange != "okx" {
		t.Fatalf("body = %+v", got)
	}
}

func TestNormaliseEndpoint(t *testing.T) {
	if got := normaliseEndpoint("minio:9000"); got != "https://minio:9000" {
		t.Fatalf("got %s", got)
	}
	if got := normaliseEndpoint("http://localhost:9000"); got != "http://localhost:9000" {
		t.Fatalf("got %s", got)
	}
}

type countingRecorder struct {
	records int
	closed  bool
	err     error
}

func (c *countingRecorder) Record(context.Context, models.Opportunity) error {
	c.records++
	return c.err
}

func (c *countingRecorder) Close() error {
	c.closed = true
	return nil
}

func TestMultiWritesEverySink(t *testing.T) {
	failing := &countingRecorder{err: errors.New("disk full")}
	ok := &countingRecorder{}
	m := NewMulti(failing, ok)
	if m.Len() != 2 {
		t.Fatalf("Len = %d, want 2", m.Len())
	}

	err := m.Record(context.Background(), sampleOpportunity("1"))
	if err == nil {
		t.Fatal("expected joined error")
	}
	if ok.records != 1 || failing.records != 1 {
		t.Fatalf("records = %d/%d", failing.records, ok.records)
	}

	_ = m.Close()
	if !ok.closed || !failing.closed {
		t.Fatal("Close must reach every sink")
	}
}

func TestEmptyMultiIsNoop(t *testing.T) {
	m := NewMulti()
	if m.Len() != 0 {
		t.Fatalf("Len = %d, want 0", m.Len())
	}
	if err := m.Record(context.Background(), sampleOpportunity("1")); err != nil {
		t.Fatalf("Record: %v", err)
	}
}
