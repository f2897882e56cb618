// Package pagegate mediates browser actions proposed by a Go agent. Every
// action passes the allowlist gatekeeper, is scored against the current
// page's injection signals, and either runs, is blocked, or waits for a
// human verdict.
//
// Usage:
//
//	pg, err := pagegate.New(pagegate.WithSession("checkout-bot"))
//	click := pg.Wrap(browser.Click)
//	_, err = click(ctx, pagegate.Action{
//	    Kind:   "click",
//	    Target: "#payment-submit",
//	    Goal:   "book a flight to Lisbon",
//	    Page:   "https://airline.example/checkout",
//	})
//
// By default the mediator runs in-process. WithRemote routes every decision
// through a pagegate server instead and fails closed when it is unreachable.
package pagegate
