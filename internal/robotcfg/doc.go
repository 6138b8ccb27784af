// Package robotcfg generates and parses the brace-delimited configuration
// block read by the robot program from its SD card.
//
// The format is line oriented: KEY=value assignments, named sections opened
// with "NAME {" (or NAME on one line and "{" on the next) and closed with
// "}". Lines starting with '#' or ';' are comments. Generated blocks copy
// form values verbatim; Validate is a separate, opt-in step.
package robotcfg
