// Package session holds the client-side conversation state.
//
// # Overview
//
// Store is an explicit, injectable state container. The console creates one
// instance and passes it to everything that reads or mutates the conversation;
// nothing writes its fields directly. It holds:
//
//   - Messages: ordered, append-only except for patching a streaming message
//   - Session ID: correlates exchanges with the backend, replaced on reset
//   - Preferences: theme, profiling flag, user id
//   - Transient flags: IsLoading and StreamingMessageID (never persisted)
//
// # Message States
//
// A message is streaming, completed or failed:
//
//	streaming --UpdateMessage(IsStreaming=false)--> completed
//	streaming --UpdateMessage(Error=...)----------> failed
//
// Completed and failed are terminal; UpdateMessage on them is a no-op. At most
// one message streams at a time, and StreamingMessageID only ever references it.
//
// # Persistence
//
// After every operation that changes messages, the session id or preferences,
// the store calls Storage.Save with a Snapshot. Save errors are logged and
// swallowed. On startup New calls Storage.Load; a missing or corrupt snapshot
// starts a fresh conversation. Messages restored while streaming are settled as
// failed, since no exchange survives a restart.
//
// KVStorage adapts any store.StateStore:
//
//	kv, _ := store.NewSQLiteStore(path)
//	s := session.New(ctx, session.NewKVStorage(kv, session.DefaultStorageKey))
//
// # Change Notifications
//
// Presentation code can follow the store without polling:
//
//	ch, _ := s.Subscribe(ctx)
//	for c := range ch {
//	    // re-render c.MessageID
//	}
package session
