// Package fn provides the small function combinators used across bund:
// last-call memoization, identity comparison of argument lists, partial
// application, currying, composition and a bounded partial-application cache.
package fn
