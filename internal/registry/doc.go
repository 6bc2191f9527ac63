// Package registry turns handler declarations into a sealed route table.
//
// Handlers reach the table through a Source: a static list in code, or the
// route list of the configuration file bound to a Catalog of named
// handlers. Build registers every declaration in order and stops at the
// first one the table rejects. It never exits the process; the caller
// decides what a failed build means.
package registry
