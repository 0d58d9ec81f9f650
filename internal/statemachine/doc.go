// Package statemachine decides what to do with a work item when an external
// trigger arrives: start it fresh, resume the stage it was in, or recognize
// that the pipeline already finished. It also guards every state write with
// the stage transition table so skips and rewinds never reach the store.
package statemachine
