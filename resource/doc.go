// Package resource provides the handle table engines use to own native
// surface instances.
//
// Handles are non-zero integers issued in increasing order. A removed handle
// is never issued again, so lookups through a stale handle fail instead of
// reaching a newer instance.
//
//	table := resource.NewTable()
//	h := table.Insert(uint32(target.Texture), ctx)
//	v, ok := table.GetTagged(h, uint32(target.Texture))
//	table.Remove(h)
//
// Observers see every insert and removal:
//
//	table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    log.Printf("instance %d %s", e.Handle, e.Type)
//	}))
package resource
