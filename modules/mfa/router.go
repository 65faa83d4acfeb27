package mfa

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/mfakit/pkg/clientip"
	"github.com/dmitrymomot/mfakit/pkg/requestid"
)

type Mountable interface {
	Handle() http.Handler
}

// RouterOptions configures the service router. Probes are optional and are
// only mounted if provided.
type RouterOptions struct {
	MFA      Mountable
	ClientIP clientip.Resolver

	Liveness  http.Handler
	Readiness http.Handler
}

// Router assembles the public router: request IDs, client IP resolution and
// panic recovery wrap every route, and the MFA endpoints live under /v1/mfa.
//
//	r := mfa.Router(mfa.RouterOptions{
//	    MFA:       mfa.NewHandler(svc, mfa.WithLimiter(limiter)),
//	    ClientIP:  clientip.NewResolver(ipCfg),
//	    Liveness:  httpserver.LivenessHandler(),
//	    Readiness: httpserver.ReadinessHandler(log, checks...),
//	})
func Router(opts RouterOptions) chi.Router {
	r := chi.NewRouter()
	r.Use(requestid.Middleware, opts.ClientIP.Middleware, middleware.Recoverer)

	if opts.Liveness != nil {
		r.Handle("/healthz", opts.Liveness)
	}
	if opts.Readiness != nil {
		r.Handle("/readyz", opts.Readiness)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeProblem(w, problem{http.StatusNotFound, "not_found", http.StatusText(http.StatusNotFound)})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeProblem(w, problem{http.StatusMethodNotAllowed, "method_not_allowed", http.StatusText(http.StatusMethodNotAllowed)})
	})

	if opts.MFA != nil {
		r.Mount("/v1/mfa", opts.MFA.Handle())
	}

	return r
}
