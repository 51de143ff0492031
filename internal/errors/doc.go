// Package errors provides coded, actionable errors for nanostore.
//
// Every error carries a short code (e.g. "N101") registered with a category,
// a one-line message and a longer explanation. Public packages export
// sentinel values built from the same codes so callers can match failures
// with the standard library:
//
//	if errors.Is(err, persistent.ErrDecode) {
//	    // the backend holds a value the store's codec cannot read
//	}
//
// # Categories
//
//   - codec: encode/decode failures between typed values and backend strings
//   - bridge: values the reactive bridge cannot classify
//   - storage: storage engine failures and misconfiguration
//   - config: configuration loading and validation
//   - transport: relay connection failures
//
// # Usage
//
//	err := errors.New("N101").
//	    WithDetail("key settings:theme").
//	    Wrap(cause)
//
//	fmt.Println(err.Format())
package errors
