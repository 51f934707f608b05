package satsledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Reader turns one provider's export file into ledger entries. A reader
// either returns the complete entry list or an error, never a silently
// truncated result.
type Reader interface {
	Read(ctx context.Context, path string) ([]LedgerEntry, error)
}

// Source pairs a reader with the file it should read.
type Source struct {
	Name   string // provider name, used in diagnostics
	Path   string
	Reader Reader
}

// SourceError is a per-source read failure.
type SourceError struct {
	Name string
	Path string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s (%s): %v", e.Name, e.Path, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// ReadSources reads all sources concurrently, one goroutine per source, and
// merges the results into a single unordered entry list. Failures are
// collected per source and joined; the entries of the sources that did
// succeed are still returned, so the caller can decide whether a partial
// ledger is acceptable before folding it.
func ReadSources(ctx context.Context, sources []Source) ([]LedgerEntry, error) {
	type result struct {
		entries []LedgerEntry
		err     error
	}

	results := make([]result, len(sources))
	var wg sync.WaitGroup
	for i, source := range sources {
		wg.Add(1)
		go func(i int, source Source) {
			defer wg.Done()
			entries, err := source.Reader.Read(ctx, source.Path)
			if err != nil {
				results[i] = result{err: &SourceError{Name: source.Name, Path: source.Path, Err: err}}
				return
			}
			results[i] = result{entries: entries}
		}(i, source)
	}
	wg.Wait()

	var entries []LedgerEntry
	var errs error
	for _, res := range results {
		if res.err != nil {
			errs = errors.Join(errs, res.err)
			continue
		}
		entries = append(entries, res.entries...)
	}
	return entries, errs
}
