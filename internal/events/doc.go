// Package events defines the notifications the engine emits to its consumer
// and the Bus that carries them.
//
// Every notification is a value of one of the concrete types in this package,
// all satisfying Event. The consumer owns a single loop that ranges over
// Bus.Events and switches on the concrete type:
//
//	for ev := range bus.Events() {
//		switch e := ev.(type) {
//		case events.FirstPageReady:
//			render(e.Records)
//		case events.WaitingRequested:
//			showSpinner(e.Message)
//		}
//	}
//
// Publish never blocks, so background goroutines cannot stall on a slow
// consumer.
package events
