// Package models defines the core domain models for Splitledger.
//
// # Models
//
//   - User: registered account; the identity behind every payer, participant
//     and settlement party
//   - Group: set of members who share expenses
//   - Expense: an amount paid by one member and divided into Shares
//   - Settlement: a directed transfer that clears part of the group's debts
//
// # Design Principles
//
//  1. Relationships are ID strings, never pointers, so models stay acyclic.
//  2. Money is shopspring/decimal with two fractional digits; floats never
//     touch an amount.
//  3. Settlements are derived data. A group's settlements are regenerated
//     from its expenses and may be discarded at any time.
package models
