// Package main is the entry point for modelctl, the record type toolkit
// and record service.
package main

func main() {
	Execute()
}
