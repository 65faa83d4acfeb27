// Package audit batches append-only records (verification attempts, security
// events) on their way to durable storage.
//
// AsyncWriter funnels concurrent Store calls into batches written by one
// worker; Fanout copies each batch to several sinks, for example a relational
// table and a search index:
//
//	sink, _ := audit.NewFanout[mfa.Attempt](pgLedger, searchLedger)
//	w := audit.NewAsyncWriter[mfa.Attempt](sink, audit.AsyncOptions{})
//	defer w.Close(ctx)
//	err := w.Store(ctx, attempt)
package audit
