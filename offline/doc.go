// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package offline buffers form submissions while a client has no connectivity
and replays them in order once it does.

# Queue

	storage, _ := offline.NewFileStorage(dir)
	submitter := &offline.HTTPSubmitter{URL: base + "/api/consumer/requests"}
	q := offline.New(storage, submitter.Submit)

	q.Enqueue(payload)          // never blocks, drops silently if storage is broken
	outcomes := q.Drain(ctx)    // FIFO replay

The queue lives under one storage key as a JSON array. Drain submits the
head, removes it only after the server answers success, and moves on. The
first failure, either a transport error or a response with success=false,
ends the call and leaves the item at the head, so later items never
overtake it. Drain is guarded by an in-flight flag; a second call while one
is running returns nil.

Every non-success is retried on the next drain. A payload the server will
never accept stays at the head until it is cleared.

# Watcher

	w := &offline.Watcher{Queue: q, Probe: offline.HealthProbe(nil, base+"/health")}
	go w.Run(ctx)

The watcher drains when the probe flips from offline to online.
*/
package offline
