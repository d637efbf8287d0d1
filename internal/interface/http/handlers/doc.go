// Package handlers contains reusable HTTP pieces shared by the API server.
//
// # Health Checks
//
// Checks are registered by name and executed in parallel. A failing critical
// check makes the service not ready; a failing optional one only degrades it:
//
//	checker := handlers.NewCompositeHealthChecker("v1.0.0")
//	checker.AddCheck("postgres", handlers.NewPingCheck(db))
//	checker.AddOptionalCheck("redis", handlers.NewPingCheck(cache))
//
//	status := checker.Check(ctx)
//
// # Stripe Webhook
//
// StripeWebhookHandler verifies the Stripe-Signature header through a
// WebhookParser and applies premium changes through the SetPremium command:
//
//	hook := handlers.NewStripeWebhookHandler(billingClient, setPremium, log)
//	router.Method(http.MethodPost, "/webhooks/stripe", hook)
//
// # Middleware
//
//	handlers.SecurityHeadersMiddleware
//	handlers.NoCacheMiddleware
//	handlers.RequestSizeLimitMiddleware(256 << 10)
package handlers
