// Package notion is a small client for the Notion REST API, limited to what
// studysync pushes: creating and updating database pages, querying
// databases, and reading database metadata.
//
// # Requests
//
// Every request carries a bearer token and the Notion-Version header and is
// bounded by Config.Timeout. A client-side token bucket keeps the request
// rate under Config.RequestsPerSecond (Notion allows about three per second
// per integration).
//
// # Retries
//
// Rate limiting (429), server errors (5xx), conflicts (409) and transport
// timeouts are retried with exponential backoff, at most Config.MaxRetries
// times. A Retry-After header raises the next delay when it is longer than
// the computed one. Authentication (401/403), validation (400) and not found
// (404) responses fail immediately.
//
// Every returned error wraps one of the package sentinels, so callers
// classify failures with errors.Is:
//
//	ref, err := client.CreatePage(ctx, dbID, payload)
//	switch {
//	case notion.IsFatal(err):
//	    // stop everything, credentials are bad
//	case errors.Is(err, notion.ErrRateLimited):
//	    // gave up after retries
//	}
//
// # Payloads
//
// Page properties are built with a Builder bound to a versioned Schema.
// Setting a property the schema does not declare, or using the wrong
// property type, fails at Build time with ErrSchema and never reaches the
// network.
//
// # Pagination
//
// QueryDatabase returns a Pager that fetches pages of up to 100 results on
// demand. Callers may stop early; Reset starts again from the first page.
package notion
