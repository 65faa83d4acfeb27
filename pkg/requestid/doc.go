// Package requestid tags each HTTP request with a correlation ID.
//
// Middleware reuses a valid inbound X-Request-ID header or generates a UUID,
// echoes it back and stores it in the request context. LoggerExtractor plugs
// into logger.WithContextExtractors so every record logged with that context
// carries request_id.
//
//	log := logger.New(logger.WithContextExtractors(requestid.LoggerExtractor()))
//	handler := requestid.Middleware(router)
package requestid
