// Command ctrltune runs controller optimizations and cache lookups locally.
package main

func main() {
	Execute()
}
