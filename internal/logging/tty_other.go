//go:build !linux

package logging

func isTerminalFd(uintptr) bool {
	return false
}
