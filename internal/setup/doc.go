// Package setup installs the PX4-Autopilot checkout that every build works in and
// bootstraps the PX4 toolchain.
//
// This package is essentially a collection of scripts, and is therefore the only
// package that is allowed to call a package level logger.
package setup
