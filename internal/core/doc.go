// Package core defines the contracts shared by every part of the engine:
// the Implementation abstraction both backends satisfy, the Invoker that
// implementations receive to issue nested calls, the InvokeResult value
// and the error taxonomy.
package core
