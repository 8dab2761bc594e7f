// Package remotefn detects server-side transform invocations in a
// selection and rewrites the selection into a RemoteInvoke node.
//
// Detection is name based. Each term's head symbol (the outermost call or
// operator, or the term itself for columns and literals) is tested against
// every registered Transform function. The default test is a loose,
// case-insensitive containment: a head matches when it contains the
// registered name, so a function registered as NORM matches normalize(x).
// MatchExact tightens this to whole-name equality.
//
// The registry is queried on every resolution so a function registered
// mid-session is seen immediately. Wrap the registry in a CachedRegistry to
// trade that freshness for fewer round trips; the cache is only cleared by
// an explicit Invalidate.
package remotefn
