// Package implcache memoizes resolved implementations per Uri for the
// lifetime of one client.
//
// # Characteristics
//
//   - **Client-scoped:** created empty with the client, purged only when the
//     client is closed. There is no TTL and no eviction.
//   - **Lock-free reads:** entries live in a sync.Map, so the hot path of an
//     invocation never takes a lock.
//   - **In-flight guard:** concurrent misses for the same Uri share one
//     resolution, and concurrent walks reaching the same factory rule share
//     one instantiation (golang.org/x/sync/singleflight).
//   - **Multi-hop shortcutting:** after an A -> B -> C walk, A, B and C all
//     point at the same implementation.
//
// # Re-entrancy
//
// No lock is held while an implementation runs, so nested invocations from
// plugins or sandboxed modules can use the cache freely. A factory that
// resolves the Uri it is currently building would wait on itself; the cache
// tracks the Uris being resolved on the current call chain and reports that
// case as a *core.RedirectCycleError instead.
package implcache
