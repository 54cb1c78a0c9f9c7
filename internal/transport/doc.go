// Package transport delivers sanitized records to clients.
//
// A Conductor sanitizes a record for an audience, wraps it in an envelope keyed
// by the type name (single record) or collection name (record array), and
// either broadcasts it on a named channel or writes it as an HTTP response.
//
// Broadcasters:
//
//   - Hub: websocket fan-out. Clients may restrict the channels they receive
//     with repeated ?channel= query parameters.
//   - RedisBroadcaster: PUBLISH on prefix+channel, with Relay to feed a local
//     Hub from other instances.
//   - MultiBroadcaster: emits to several broadcasters.
//
// Every broadcaster reports ErrNoSubscribers when nobody received the payload.
package transport
