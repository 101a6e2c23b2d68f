// Package carousel is the state machine of the image carousel.
//
// State tracks the current index, the visible index (which lags the current
// index until its image is ready), the navigation direction and the last
// known index. Reduce is the pure transition function over a closed set of
// actions:
//
//	SelectionChanged  reset to index 0, nothing visible, end unknown
//	Advance           move by one, clamped to the known end, skipping
//	                  broken images when a ready one lies beyond them
//	MetadataArrived   record the last index from the total item count
//	PageArrived       same, from a settled page request for the live key
//	ImageReady        show the current index once its image is ready
//
// A Controller applies actions and keeps a pagination.Fetcher and a
// prefetch.Prefetcher in step: after every move it requests the page of the
// current index and the page LookaheadDistance items ahead, and moves the
// prefetch window. Open wires the three together and returns a Session that
// must be closed:
//
//	session, err := carousel.Open(ctx, api.ImageSource(),
//		prefetch.NewHTTPLoader(nil, ""), carousel.DefaultOptions())
//	if err != nil {
//		return err
//	}
//	defer session.Close()
//
//	session.Select("abys")
//	for state := range session.Changes() {
//		...
//	}
//
// The visible index is never an index whose image is not ready.
package carousel
