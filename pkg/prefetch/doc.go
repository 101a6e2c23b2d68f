// Package prefetch preloads images ahead of the carousel's current index.
//
// The prefetch window is the run of Window indices starting at the current
// index. Every Tick enters untracked window indices as Waiting and starts
// loads for those whose page is already known, lowest index first, while
// fewer than MaxInFlight loads are running. Indices on a failed page become
// Error right away:
//
//	p := prefetch.New(prefetch.NewHTTPLoader(nil, ""), prefetch.DefaultConfig(),
//		prefetch.WithOnLoad(func(index int, s prefetch.Status) { ... }))
//	defer p.Close()
//
//	p.Tick(current, resolve)
//
// A failed load is retried once after RetryBackoff when Retry is set; the
// index is Error only when the retry fails too. Reset drops all tracked
// statuses and cancels running loads. Loads that complete after a Reset are
// discarded.
package prefetch
