package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/suwandre/arbwatch/internal/models"
)

type hsetCall struct {
	key    string
	fields map[string]interface{}
}

type fakeRedis struct {
	hsets      []hsetCall
	published  map[string][]byte
	publishErr error
}

func (f *fakeRedis) HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	fields, _ := values[0].(map[string]interface{})
	f.hsets = append(f.hsets, hsetCall{key: key, fields: fields})
	cmd.SetVal(int64(len(fields)))
	return cmd
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if f.publishErr != nil {
		cmd.SetErr(f.publishErr)
		return cmd
	}
	if f.published == nil {
		f.published = make(map[string][]byte)
	}
	f.published[channel] = message.([]byte)
	cmd.SetVal(1)
	return cmd
}

func testRound() *models.RoundResult {
	return &models.RoundResult{
		Seq:    9,
		Symbol: "ETH/BRL",
		Rows: []models.VenueRow{
			{
				Exchange: "okx",
				Quote: &models.Quote{
					Symbol:     "ETH/BRL",
					Bid:        models.Float(999.5),
					Ask:        models.Float(1000),
					ObservedAt: time.Unix(0, 42),
				},
				Fees: models.FeeSchedule{Maker: 0.0008, Taker: 0.001},
			},
			{Exchange: "novadax", QuoteErr: "timeout"},
		},
	}
}

func TestPublishWritesQuotesAndRound(t *testing.T) {
	fake := &fakeRedis{}
	p := newRoundPublisher(fake, "arbwatch:rounds")

	if err := p.Publish(context.Background(), testRound()); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(fake.hsets) != 1 {
		t.Fatalf("expected one HSET for the quoted venue, got %d", len(fake.hsets))
	}
	call := fake.hsets[0]
	if call.key != "quote:okx" {
		t.Fatalf("unexpected key %q", call.key)
	}
	if call.fields["bid"] != "999.5" || call.fields["ask"] != "1000" || call.fields["ts"] != "42" {
		t.Fatalf("unexpected fields %v", call.fields)
	}

	raw, ok := fake.published["arbwatch:rounds"]
	if !ok {
		t.Fatal("round was not published")
	}
	var got models.RoundResult
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Seq != 9 || len(got.Rows) != 2 {
		t.Fatalf("unexpected published round %+v", got)
	}
}

func TestPublishReportsErrors(t *testing.T) {
	fake := &fakeRedis{publishErr: errors.New("connection reset")}
	p := newRoundPublisher(fake, "rounds")

	err := p.Publish(context.Background(), testRound())
	if err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("expected publish error, got %v", err)
	}

	// OnRound swallows the error.
	p.OnRound(context.Background(), testRound())
}

func TestCloseWithoutClient(t *testing.T) {
	p := newRoundPublisher(&fakeRedis{}, "rounds")
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
