// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package datebucket

import (
	"slices"
	"time"

	"github.com/bureau-foundation/chatsync/lib/clock"
	"github.com/bureau-foundation/chatsync/lib/ref"
	"github.com/bureau-foundation/chatsync/lib/schema/chat"
)

// Bucket holds the messages of one calendar day.
type Bucket struct {
	Day      Day
	Label    string
	Messages []chat.Message
}

// Buckets is ordered by Day, oldest first.
type Buckets []Bucket

// Len returns the total number of messages across all buckets.
func (bs Buckets) Len() int {
	total := 0
	for _, bucket := range bs {
		total += len(bucket.Messages)
	}
	return total
}

// Find locates a message by id. The returned pointer addresses the
// stored message and stays valid until the next operation that
// returns a new Buckets.
func (bs Buckets) Find(id ref.MessageID) (*chat.Message, bool) {
	for b := range bs {
		for m := range bs[b].Messages {
			if bs[b].Messages[m].ID == id {
				return &bs[b].Messages[m], true
			}
		}
	}
	return nil, false
}

// Contains reports whether a message with the given id is present.
func (bs Buckets) Contains(id ref.MessageID) bool {
	_, ok := bs.Find(id)
	return ok
}

// Oldest returns the earliest message, if any.
func (bs Buckets) Oldest() (chat.Message, bool) {
	for _, bucket := range bs {
		if len(bucket.Messages) > 0 {
			return bucket.Messages[0], true
		}
	}
	return chat.Message{}, false
}

// Newest returns the latest message, if any.
func (bs Buckets) Newest() (chat.Message, bool) {
	for b := len(bs) - 1; b >= 0; b-- {
		if messages := bs[b].Messages; len(messages) > 0 {
			return messages[len(messages)-1], true
		}
	}
	return chat.Message{}, false
}

// Messages returns every message in display order.
func (bs Buckets) Messages() []chat.Message {
	all := make([]chat.Message, 0, bs.Len())
	for _, bucket := range bs {
		all = append(all, bucket.Messages...)
	}
	return all
}

// Relabel recomputes every label relative to now. Call it after
// midnight so "Today" becomes "Yesterday".
func (bs Buckets) Relabel(now time.Time, loc *time.Location) {
	today := DayOf(now, loc)
	for i := range bs {
		bs[i].Label = bs[i].Day.Label(today, loc)
	}
}

// Bucketer binds the clock and location used for day boundaries and
// labels. The zero value uses the real clock and the local zone.
type Bucketer struct {
	Clock    clock.Clock
	Location *time.Location
}

func (b Bucketer) location() *time.Location {
	if b.Location == nil {
		return time.Local
	}
	return b.Location
}

func (b Bucketer) today() Day {
	if b.Clock == nil {
		return DayOf(time.Now(), b.location())
	}
	return DayOf(b.Clock.Now(), b.location())
}

// Key returns the label for a message created at t.
func (b Bucketer) Key(t time.Time) string {
	return DayOf(t, b.location()).Label(b.today(), b.location())
}

// Group partitions messages by day, keeping arrival order within each
// day. Later duplicates of an id are dropped.
func (b Bucketer) Group(messages []chat.Message) Buckets {
	var result Buckets
	seen := make(map[ref.MessageID]struct{}, len(messages))
	for _, message := range messages {
		if _, duplicate := seen[message.ID]; duplicate {
			continue
		}
		seen[message.ID] = struct{}{}
		index := b.bucketFor(&result, message.CreatedAt)
		result[index].Messages = append(result[index].Messages, message)
	}
	return result
}

// MergeOlderPage merges a page of older history into existing. Page
// messages go ahead of existing messages of the same day; ties on
// creation time also favor the page. Days not yet present get new
// buckets in date order. Messages already present, by id, are
// skipped, so merging the same page twice is a no-op.
func (b Bucketer) MergeOlderPage(existing Buckets, older []chat.Message) Buckets {
	known := make(map[ref.MessageID]struct{}, existing.Len()+len(older))
	for _, bucket := range existing {
		for _, message := range bucket.Messages {
			known[message.ID] = struct{}{}
		}
	}

	perDay := make(map[Day][]chat.Message)
	var days []Day
	for _, message := range older {
		if _, duplicate := known[message.ID]; duplicate {
			continue
		}
		known[message.ID] = struct{}{}
		day := DayOf(message.CreatedAt, b.location())
		if _, ok := perDay[day]; !ok {
			days = append(days, day)
		}
		perDay[day] = append(perDay[day], message)
	}

	for _, day := range days {
		page := perDay[day]
		slices.SortStableFunc(page, func(x, y chat.Message) int { return x.CreatedAt.Compare(y.CreatedAt) })
		index := b.bucketFor(&existing, page[0].CreatedAt)
		existing[index].Messages = mergeByTime(page, existing[index].Messages)
	}
	return existing
}

// AppendLive adds a live message to the end of its day. A message that
// arrives out of order is placed at its chronological position. A
// duplicate id is ignored.
func (b Bucketer) AppendLive(existing Buckets, message chat.Message) Buckets {
	if existing.Contains(message.ID) {
		return existing
	}
	index := b.bucketFor(&existing, message.CreatedAt)
	messages := existing[index].Messages
	position := len(messages)
	for position > 0 && messages[position-1].CreatedAt.After(message.CreatedAt) {
		position--
	}
	existing[index].Messages = slices.Insert(messages, position, message)
	return existing
}

// bucketFor returns the index of the bucket for t, inserting an empty
// bucket in date order when none exists.
func (b Bucketer) bucketFor(buckets *Buckets, t time.Time) int {
	day := DayOf(t, b.location())
	index, found := slices.BinarySearchFunc(*buckets, day, func(bucket Bucket, target Day) int {
		return bucket.Day.Compare(target)
	})
	if !found {
		*buckets = slices.Insert(*buckets, index, Bucket{
			Day:   day,
			Label: day.Label(b.today(), b.location()),
		})
	}
	return index
}

// mergeByTime merges two lists sorted by CreatedAt. On equal times
// the first list's message comes first.
func mergeByTime(first, second []chat.Message) []chat.Message {
	merged := make([]chat.Message, 0, len(first)+len(second))
	i, j := 0, 0
	for i < len(first) && j < len(second) {
		if second[j].CreatedAt.Before(first[i].CreatedAt) {
			merged = append(merged, second[j])
			j++
		} else {
			merged = append(merged, first[i])
			i++
		}
	}
	merged = append(merged, first[i:]...)
	return append(merged, second[j:]...)
}
