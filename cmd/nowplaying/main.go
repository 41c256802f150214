// Package main is the entry point for the Kodi now-playing backend.
package main

func main() {
	Execute()
}
