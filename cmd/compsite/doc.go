// Compsite serves and builds the Comp-V5 robotics website.
//
// It renders the project README, changelog and releases from GitHub,
// generates robot configuration blocks, and memoises every remote fetch in
// an in-process cache shared by all pages.
//
// Usage:
//
//	compsite serve --addr :8080        # run the website
//	compsite build --dir dist          # export static pages (+ .gz)
//	compsite readme --format html      # render the README
//	compsite releases --name Vex-SDK   # list SDK releases
//	compsite robot-config generate --field front_left_port=1 --copy
//	compsite robot-config parse config.txt
//
// Configuration is read from $XDG_CONFIG_HOME/compsite/config.json and
// COMPSITE_* environment variables; COMPSITE_LOG sets the log level.
package main
