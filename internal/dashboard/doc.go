// Package dashboard polls backend endpoints for the health and metrics views.
//
// A Panel holds the latest payload of one endpoint. A Poller drives a fetch
// function on a repeating timer:
//
//	panel := dashboard.NewHealthPanel(client)
//	poller := dashboard.NewPoller("health", 30*time.Second, panel.Fetch, logger)
//	go poller.Run(ctx)
//
// Fetches never overlap. A tick that fires while the previous fetch is still
// running is skipped and counted.
package dashboard
