// Package activity tracks user inactivity from throttled interaction
// events.
//
// A [Tracker] holds the last-activity timestamp, fed by [Tracker.Observe]
// calls for pointer and input events. Pointer movement is throttled more
// aggressively than clicks, keys, touches, and focus changes so a resting
// hand on a mouse does not defeat the threshold. [Tracker.Check] recomputes
// the active flag against a configurable threshold; [Tracker.Run] does so on
// a fixed interval and reports transitions.
//
// # Architecture boundaries
//
// The tracker is a UX signal only. It does NOT terminate sessions, touch
// tokens, or talk to any backend — consumers decide what an inactive user
// means for them.
//
// # What this package must NOT do
//
//   - Log the user out or mutate session state.
//   - Perform I/O of any kind.
package activity
