package service

import (
    "container/heap"

    "github.com/d60-Lab/home-timeline/internal/model"
)

// MergeRefs 对若干已按 (created_at desc, post_id desc) 排序的引用列表做 k 路归并，
// 按 post_id 去重，截断到 limit。独立于任何网络 IO，便于单测。
func MergeRefs(lists [][]model.PostRef, limit int) []model.PostRef {
    h := &refHeap{}
    for i, list := range lists {
        if len(list) > 0 {
            h.items = append(h.items, refHeapItem{ref: list[0], list: i, next: 1})
        }
    }
    heap.Init(h)

    seen := make(map[string]struct{})
    out := make([]model.PostRef, 0, limit)
    for h.Len() > 0 && len(out) < limit {
        top := heap.Pop(h).(refHeapItem)
        if _, dup := seen[top.ref.PostID]; !dup {
            seen[top.ref.PostID] = struct{}{}
            out = append(out, top.ref)
        }
        if top.next < len(lists[top.list]) {
            heap.Push(h, refHeapItem{ref: lists[top.list][top.next], list: top.list, next: top.next + 1})
        }
    }
    return out
}

type refHeapItem struct {
    ref  model.PostRef
    list int
    next int
}

type refHeap struct {
    items []refHeapItem
}

func (h *refHeap) Len() int            { return len(h.items) }
func (h *refHeap) Less(i, j int) bool  { return h.items[i].ref.After(h.items[j].ref) }
func (h *refHeap) Swap(i, j int)       { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *refHeap) Push(x interface{})  { h.items = append(h.items, x.(refHeapItem)) }
func (h *refHeap) Pop() interface{} {
    old := h.items
    n := len(old)
    it := old[n-1]
    h.items = old[:n-1]
    return it
}
