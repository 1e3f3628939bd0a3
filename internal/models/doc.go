// Package models defines the core domain models for receiptbook.
//
// # Synced Models
//
// The following models are owned by a user and synced to devices through
// the change feed:
//   - Budget: Monthly spending limit
//   - Category: User-defined spending category (soft-deleted)
//   - Receipt: A purchase with its ordered line items (soft-deleted)
//
// ReceiptItem rows are owned by their Receipt. They are only ever created,
// updated or deleted by storing the parent receipt.
//
// # Registration Models
//
//   - User: Registered account
//   - UserDevice: A device registered under a user
//
// These are read-mostly and not part of the change feed.
//
// # Versioning
//
// Synced models carry a Version that starts at 0 on creation and advances by
// exactly one on every accepted update. A client must present the version it
// last observed; a stale version is rejected as a conflict.
//
// UpdatedAt is a unix millisecond timestamp written by storage on every
// insert and update. It is the checkpoint column of the change feed and is
// never taken from the client.
package models
