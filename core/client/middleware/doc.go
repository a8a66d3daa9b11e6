// Package middleware provides built-in middleware for the polychat client.
// Each middleware is constructed via a New* function that returns a
// [client.MiddlewareConfig] ready to be passed to [client.WithMiddleware].
//
//   - [NewRetryMiddleware]: retries rateLimited and 5xx serverError failures
//     with exponential backoff and jitter. Opt-in; streams are never retried.
//   - [NewTimeoutMiddleware]: bounds a call, stream lifetime included.
//   - [NewLoggingMiddleware]: structured slog entries before and after every
//     call, at three verbosity levels.
//
// Middlewares execute outermost-first:
//
//	c, err := client.New(service,
//	    client.WithMiddleware(
//	        middleware.NewTimeoutMiddleware(2*time.Minute),
//	        middleware.NewRetryMiddleware(middleware.RetryConfig{MaxRetries: 3}),
//	        middleware.NewLoggingMiddleware(slog.Default(), middleware.LogLevelStandard),
//	    ),
//	)
package middleware
