// Package api hosts the insight proxy: a POST-only endpoint that turns a
// wallet, CARV UID and soul score into a persona-flavoured prompt, forwards it
// to the upstream text completion service and answers with a short insight.
package api
