// Package reactive is a small fine-grained reactive runtime: signals,
// effects and owner scopes.
//
// Reading a Signal inside an Effect subscribes the effect; setting the
// signal re-runs it. Owners group effects and cleanup functions so a whole
// scope can be torn down at once, and carry mount hooks that run when the
// scope becomes active.
//
//	owner := reactive.NewOwner(nil)
//	count := reactive.NewSignal(0)
//
//	reactive.WithOwner(owner, func() {
//	    reactive.CreateEffect(func() reactive.Cleanup {
//	        fmt.Println("count:", count.Get())
//	        return nil
//	    })
//	})
//
//	count.Set(1)     // prints "count: 1"
//	owner.Dispose()  // stops the effect
//
// Tracking state is kept per goroutine, so effects can run on the goroutine
// that delivered a change.
package reactive
