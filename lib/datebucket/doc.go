// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package datebucket groups messages under calendar-day headers
// ("Today", "Yesterday", "Saturday, March 14, 2026").
//
// [Buckets] is an ordered slice, oldest day first, and messages within
// a bucket are ordered by creation time. Every operation deduplicates
// by message id, so re-delivering a history page or receiving a live
// message that a concurrent page also contains never produces a
// duplicate. [Bucketer.MergeOlderPage] places messages by timestamp
// rather than blindly prepending, which makes it commute with
// [Bucketer.AppendLive].
//
// Like append, the operations return the updated Buckets and may reuse
// the storage of the Buckets passed in.
package datebucket
