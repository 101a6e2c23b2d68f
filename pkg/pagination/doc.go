// Package pagination fetches and caches pages of a paginated remote collection
// scoped to a selection key.
//
// Items are addressed by a single global index. With a fixed page size P, a
// global index i lives on page i/P at offset i%P; PageIndex, Offset and
// GlobalIndex implement that mapping and are the only place it is computed.
//
// A PageCache holds the pages fetched for the live key. Results carrying any
// other key are dropped, so a response that lands after the selection changed
// can never leak into the new collection.
//
// A Fetcher builds on the cache:
//
//	fetcher := pagination.NewFetcher(src, pagination.DefaultConfig(),
//		pagination.WithOnPage(func(ev pagination.PageEvent) { ... }))
//	defer fetcher.Close()
//
//	fetcher.ResetPages("abys")   // arm the key guard before fetching
//	fetcher.FetchPage(0, "abys") // no-op if page 0 is known for "abys"
//
// The fetcher:
//   - Runs every page request on its own request.Runner
//   - Marks pages loading, loaded or error (aborted requests leave no trace)
//   - Records the total item count from response metadata, last seen wins
//   - Aborts in-flight requests on ResetPages and Close
//
// Deciding which pages to fetch (lookahead) is the caller's job.
package pagination
