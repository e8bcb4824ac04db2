// Package conversation runs send-message exchanges.
//
// # Controller
//
// The Controller is the only writer of exchange state:
//
//	ctrl := conversation.New(store, client, logger)
//	msg, err := ctrl.SendMessage(ctx, "Hi")
//
// One exchange proceeds as:
//
//  1. Append the user message as entered
//  2. Append an empty agent placeholder in the streaming state
//  3. Mark it as the streaming message and set loading
//  4. Call the backend exactly once with the session id, user id and
//     profiling flag from the store
//  5. On success, fill the placeholder from the reply and adopt a new session
//     id if the backend assigned one
//  6. On failure, settle the placeholder as failed with a readable error
//  7. Always clear the streaming id and the loading flag
//
// No retries are attempted. A send while another is in flight returns
// ErrExchangeInFlight and changes nothing.
package conversation
