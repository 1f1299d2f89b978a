// Package flow implements the preview and confirmation flow shared by the web frontend and the terminal client.
//
// A [Flow] is a request/response state machine:
//
//	Idle -> Loading -> {Failed | Empty | Ready}
//	Ready -> Materializing -> {Done | Failed}
//
// Every transition out of Loading or Materializing is driven by the result of exactly one backend call.
// While a call is outstanding the flow rejects new submissions with [ErrInFlight]. A [Flow.Reset] during a call
// discards whatever the call returns.
//
// Failures are classified with [services.Classify] into a [Failure] carrying the recovery the view must offer:
// unauthorized failures discard the preview and send the user to login, application failures offer the way back
// to the listing, transport failures offer a retry. A failed materialization keeps the preview so the user can
// confirm again.
//
// A successful materialization is written once to a [ResultStore] under the flow's key; the result view reads
// it and clears it when the user leaves. [MemoryResultStore] serves a single process; [RedisResultStore] lets
// several frontend instances share results.
package flow
