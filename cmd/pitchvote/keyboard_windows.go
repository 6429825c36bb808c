//go:build windows
// +build windows

package main

import "os"

// listenForKeyboard feeds key presses to c. Windows consoles stay in line
// mode, so keys arrive after Enter.
func listenForKeyboard(c *console) {
	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return
		}
		if n == 0 || buf[0] == '\r' || buf[0] == '\n' {
			continue
		}
		if !c.handleKey(buf[0]) {
			return
		}
	}
}
