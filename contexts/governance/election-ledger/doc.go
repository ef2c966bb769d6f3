// Package electionledger implements the election ledger inside the
// governance context.
//
// The module keeps one voting window, a weighted participant registry and a
// project catalog under a single stored record, and exposes the admin and
// voting methods that mutate it. Every accepted method commits the new record
// together with an outbox event, which workers relay to the event bus and
// audit on the consuming side.
package electionledger
