// Package httpserver runs an http.Handler with sane timeouts and graceful
// shutdown tied to a context, plus liveness and readiness handlers.
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//	err := httpserver.New(cfg, httpserver.WithLogger(log)).Run(ctx, router)
package httpserver
