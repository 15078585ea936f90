// Package main is the folder watcher binary. It runs next to the backend
// server and feeds local documents into the ingest API.
package main

import "os"

func main() {
	if err := execute(); err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}
