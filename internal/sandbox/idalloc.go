package sandbox

import "sync/atomic"

// IDAllocator hands out box ids in the range [(shard+1)*10, (shard+2)*10)
// per spec.md §5 "Shared-resource policy". A small low range (ids 0-9) is
// implicitly reserved for ad-hoc/manual use since shard 0 starts at 10.
// No locking is required: allocations happen only on the worker's single
// logical thread, but the counter is still atomic so IDAllocator is safe
// to share across goroutines that take turns (e.g. a pipelined worker).
type IDAllocator struct {
	shard   int32
	counter int32
}

// NewIDAllocator returns an allocator for the given worker shard.
func NewIDAllocator(shard int32) *IDAllocator {
	return &IDAllocator{shard: shard}
}

// Next returns the next box id for this shard.
func (a *IDAllocator) Next() int32 {
	n := atomic.AddInt32(&a.counter, 1) - 1
	base := (a.shard + 1) * 10
	span := int32(10)
	return base + n%span
}
