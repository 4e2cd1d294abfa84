// Package devtools serves a JSON inspector over a combined root:
//
//	GET  /api/state                              state of every bundle
//	GET  /api/bundles                            bundle summaries
//	GET  /api/bundles/{key}                      one bundle in detail
//	GET  /api/bundles/{key}/selectors/{name}     selector value
//	POST /api/bundles/{key}/actions/{action}     dispatch, body is a JSON array of args
//	GET  /api/signals                            recent action signals, oldest first
package devtools
