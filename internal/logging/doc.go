// Package logging configures apex/log for the compsite binary.
//
// The level comes from the COMPSITE_LOG environment variable (debug,
// info, warn, error, fatal). Every entry is written as a single line with a
// timestamp, the one-letter level and the message followed by its fields.
package logging
