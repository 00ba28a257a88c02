// Package types holds the data model shared by the plan loader, the execution
// engine and the report generator.
package types
