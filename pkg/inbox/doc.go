// Package inbox watches a directory for case definition files and hands
// each new or rewritten file to a handler once writes to it settle.
package inbox
