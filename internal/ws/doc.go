// Package ws implements the real-time session synchronization core for
// collaborative editing.
//
// The package implements:
//   - Registry: maps project identifiers to rooms; the source of truth for
//     who is editing what
//   - Room: the set of sessions joined to one project, with
//     all-but-sender broadcast
//   - Session: one client's membership record, holding its client identifier
//     and a non-owning connection handle
//   - Handler: parses inbound envelopes and routes them by message kind
//   - Service: session lifecycle (join, disconnect) and asset sync, which
//     persists through the external store before broadcasting
//
// Key behaviors:
//   - Concurrent edits are relayed, not reconciled; there is no merge logic
//   - A failed recipient is skipped and logged, never aborting a broadcast
//   - Rooms are created lazily on first join and evicted when emptied;
//     project identifiers stay addressable
//   - Store calls run off the read loop so a slow store never stalls
//     admission or unrelated broadcasts
package ws
