// Package realtime is the live update channel.
//
// Connections join topics ("list:{id}", "user:{id}") and receive every event
// published to those topics after they joined. Delivery is best effort and
// at most once: there is no replay and no acknowledgement, so clients
// re-fetch over REST after (re)joining.
//
// Thread-safety model:
//   - Hub methods are safe from any goroutine. Publish never blocks on a
//     subscriber; a subscriber whose buffer is full is dropped.
//   - Events on one topic reach every subscriber in publish order because
//     fan-out is serialized by the hub lock.
//   - RedisBus.Publish only enqueues; RedisBus.Run must be called from
//     exactly one goroutine.
package realtime
