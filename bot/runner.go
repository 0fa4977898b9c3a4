// Package bot wires the fetch-parse-diff-notify cycle together and runs it
// on a schedule.
package bot

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/aluiziolira/redeem-code-bot/config"
	"github.com/aluiziolira/redeem-code-bot/memo"
	"github.com/aluiziolira/redeem-code-bot/models"
	"github.com/aluiziolira/redeem-code-bot/parser"
	"github.com/aluiziolira/redeem-code-bot/scraper"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Fetcher fetches the raw wiki markup.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// Notifier announces newly added codes.
type Notifier interface {
	SendAddedCodes(ctx context.Context, codes []string) error
}

// Runner executes one cycle at a time. It owns the memo store for the
// lifetime of the process; the scheduler serializes calls, so nothing here
// needs locking.
type Runner struct {
	cfg      *config.Config
	fetcher  Fetcher
	store    *memo.Store
	notifier Notifier
	metrics  *scraper.Metrics

	// pageCache remembers hashes of recently processed page bodies so an
	// unchanged page skips the parse entirely. Nil when disabled.
	pageCache *lru.Cache[uint64, time.Time]
}

// NewRunner builds a runner around the given collaborators.
func NewRunner(cfg *config.Config, fetcher Fetcher, store *memo.Store, notifier Notifier, metrics *scraper.Metrics) (*Runner, error) {
	var cache *lru.Cache[uint64, time.Time]
	if cfg.PageCacheSize > 0 {
		var err error
		cache, err = lru.New[uint64, time.Time](cfg.PageCacheSize)
		if err != nil {
			return nil, fmt.Errorf("create page cache: %w", err)
		}
	}

	return &Runner{
		cfg:       cfg,
		fetcher:   fetcher,
		store:     store,
		notifier:  notifier,
		metrics:   metrics,
		pageCache: cache,
	}, nil
}

// RunCycle performs one fetch-parse-diff-notify cycle. Any failure aborts
// the cycle with the memo untouched on disk and in memory; the next
// scheduled tick retries independently.
func (r *Runner) RunCycle(ctx context.Context) (*models.CycleResult, error) {
	result := &models.CycleResult{StartTime: time.Now()}

	body, err := r.fetcher.Fetch(ctx)
	if err != nil {
		return nil, r.fail(fmt.Errorf("fetch wiki page: %w", err))
	}

	key := pageKey(body)
	if r.pageCache != nil {
		if _, unchanged := r.pageCache.Get(key); unchanged {
			result.Skipped = true
			result.MemoSize = r.store.Len()
			result.EndTime = time.Now()
			r.metrics.IncCycle(scraper.OutcomeSkipped)
			return result, nil
		}
	}

	table, err := parser.FindCodeTable(body, r.cfg.TableClass)
	if err != nil {
		return nil, r.fail(err)
	}
	records, err := parser.ExtractRecords(table)
	if err != nil {
		return nil, r.fail(err)
	}

	added, err := r.store.Diff(records)
	if err != nil {
		return nil, r.fail(fmt.Errorf("memo diff: %w", err))
	}
	result.Added = added
	result.MemoSize = r.store.Len()
	r.metrics.AddCodes(len(added))
	r.metrics.SetMemoSize(r.store.Len())

	if len(added) > 0 {
		if err := r.notifier.SendAddedCodes(ctx, added); err != nil {
			return nil, r.fail(fmt.Errorf("notify added codes: %w", err))
		}
		result.Notified = true
	}

	// Only a fully successful cycle marks the page as processed, so an
	// error keeps the next tick retrying the same content.
	if r.pageCache != nil {
		r.pageCache.Add(key, time.Now())
	}

	result.EndTime = time.Now()
	r.metrics.IncCycle(scraper.OutcomeSuccess)
	return result, nil
}

// MemoCodes returns the memoized codes in sorted order, for logging.
func (r *Runner) MemoCodes() []string {
	return r.store.Codes()
}

func (r *Runner) fail(err error) error {
	r.metrics.IncCycle(scraper.OutcomeError)
	return err
}

func pageKey(body []byte) uint64 {
	h := fnv.New64a()
	h.Write(body)
	return h.Sum64()
}

// diagnosticLimit bounds how much offending markup ends up in a log line.
const diagnosticLimit = 2048

// diagnosticPayload extracts the offending markup carried by structural
// errors, truncated for logging. Empty for non-structural failures.
func diagnosticPayload(err error) string {
	var tableCount parser.TableCountError
	if errors.As(err, &tableCount) {
		return parser.Excerpt(tableCount.Markup, diagnosticLimit)
	}
	var rowCount parser.RowCountError
	if errors.As(err, &rowCount) {
		return parser.Excerpt(rowCount.Table, diagnosticLimit)
	}
	var missingCode parser.MissingCodeError
	if errors.As(err, &missingCode) {
		return parser.Excerpt(missingCode.Group, diagnosticLimit)
	}
	return ""
}
