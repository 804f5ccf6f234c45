// Package hcl provides the concrete HCL implementations of the client
// configuration Loader defined in the `config` package and of the query
// Compiler defined in the `query` package. It is responsible for all file
// parsing, HCL-to-model translation and evaluation of query arguments.
package hcl
